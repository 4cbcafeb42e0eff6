// Package wsbridge carries fixed-size transport packets over WebSocket
// connections. Every frame it ships is already a fully authenticated
// packet.PacketSize-byte blob; this package never looks inside one, it only
// moves them between peers.
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/securelegion/shield-core/pkg/transport/packet"
)

var ErrSendBufferFull = errors.New("wsbridge: send buffer full")

// Conn wraps one established WebSocket connection carrying fixed-size
// frames in both directions.
type Conn struct {
	ws *websocket.Conn

	sendChan chan []byte
	recvChan chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	framesSent atomic.Uint64
	framesRecv atomic.Uint64
}

func newConn(parent context.Context, ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{
		ws:       ws,
		sendChan: make(chan []byte, 64),
		recvChan: make(chan []byte, 64),
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.recvChan)
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("wsbridge: read error: %v", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			log.Printf("wsbridge: dropping non-binary frame (type %d)", messageType)
			continue
		}
		if len(data) != packet.PacketSize {
			log.Printf("wsbridge: dropping frame with wrong size %d", len(data))
			continue
		}
		c.framesRecv.Add(1)
		select {
		case c.recvChan <- data:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame, ok := <-c.sendChan:
			if !ok {
				return
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Printf("wsbridge: write error: %v", err)
				return
			}
			c.framesSent.Add(1)
		}
	}
}

// Send queues frame (which must be exactly packet.PacketSize bytes) for
// delivery, returning ErrSendBufferFull if the peer isn't draining fast
// enough.
func (c *Conn) Send(frame []byte) error {
	if len(frame) != packet.PacketSize {
		return fmt.Errorf("wsbridge: frame must be %d bytes, got %d", packet.PacketSize, len(frame))
	}
	select {
	case c.sendChan <- frame:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("wsbridge: connection closed")
	default:
		return ErrSendBufferFull
	}
}

// Recv returns the channel of inbound fixed-size frames. It closes when the
// connection is torn down.
func (c *Conn) Recv() <-chan []byte {
	return c.recvChan
}

// Close tears down the connection.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

// Dial opens a client-side WebSocket connection to url and wraps it.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial: %w", err)
	}
	return newConn(ctx, ws), nil
}

// Handler is invoked once per accepted connection, in its own goroutine.
// The handler owns conn for its lifetime and must Close it when done.
type Handler func(conn *Conn)

// Server accepts WebSocket connections on a single HTTP endpoint and hands
// each one to a Handler.
type Server struct {
	addr       string
	maxClients int
	upgrader   websocket.Upgrader
	handler    Handler
	http       *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	activeConnections atomic.Int64
}

// NewServer builds a Server listening on addr. maxClients caps concurrent
// connections; readBufferSize/writeBufferSize size the WebSocket upgrader's
// buffers.
func NewServer(addr string, maxClients, readBufferSize, writeBufferSize int, handler Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		maxClients: maxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("wsbridge: listening on %s", s.addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.http == nil {
		return nil
	}
	err := s.http.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if int(s.activeConnections.Load()) >= s.maxClients {
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsbridge: upgrade failed: %v", err)
		return
	}

	conn := newConn(s.ctx, ws)
	s.activeConnections.Add(1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.activeConnections.Add(-1)
		defer conn.Close()
		s.handler(conn)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","active_connections":%d}`, s.activeConnections.Load())
}
