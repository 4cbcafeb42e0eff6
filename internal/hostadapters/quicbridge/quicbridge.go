// Package quicbridge carries fixed-size transport packets over QUIC
// streams, the low-latency counterpart to wsbridge's WebSocket transport.
// Like wsbridge, it never looks inside a frame — it only moves
// packet.PacketSize-byte blobs between peers.
package quicbridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/securelegion/shield-core/pkg/transport/packet"
)

// Conn wraps one bidirectional QUIC stream carrying fixed-size frames.
type Conn struct {
	conn   *quic.Conn
	stream *quic.Stream

	closeOnce sync.Once
	closed    chan struct{}
}

func wrapStream(conn *quic.Conn, stream *quic.Stream) *Conn {
	return &Conn{conn: conn, stream: stream, closed: make(chan struct{})}
}

// Send writes one fixed-size frame to the peer.
func (c *Conn) Send(frame []byte) error {
	if len(frame) != packet.PacketSize {
		return fmt.Errorf("quicbridge: frame must be %d bytes, got %d", packet.PacketSize, len(frame))
	}
	_, err := c.stream.Write(frame)
	if err != nil {
		return fmt.Errorf("quicbridge: write: %w", err)
	}
	return nil
}

// Recv blocks until one fixed-size frame has been read from the peer.
func (c *Conn) Recv() ([]byte, error) {
	frame := make([]byte, packet.PacketSize)
	if _, err := io.ReadFull(c.stream, frame); err != nil {
		return nil, fmt.Errorf("quicbridge: read: %w", err)
	}
	return frame, nil
}

// Close tears down the stream and the underlying QUIC connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.stream.Close()
		err = c.conn.CloseWithError(0, "closed")
	})
	return err
}

func defaultQUICConfig() *quic.Config {
	return &quic.Config{
		MaxIncomingStreams:    1,
		MaxIncomingUniStreams: 0,
		KeepAlivePeriod:       10 * time.Second,
		MaxIdleTimeout:        30 * time.Second,
	}
}

// Dial opens a client-side QUIC connection and its single bidirectional
// stream.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (*Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, defaultQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("quicbridge: dial: %w", err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "failed to open stream")
		return nil, fmt.Errorf("quicbridge: open stream: %w", err)
	}
	return wrapStream(conn, stream), nil
}

// Handler is invoked once per accepted connection, in its own goroutine.
// The handler owns conn for its lifetime and must Close it when done.
type Handler func(conn *Conn)

// Server accepts QUIC connections and hands each one's sole bidirectional
// stream to a Handler.
type Server struct {
	listener *quic.Listener
	handler  Handler

	wg sync.WaitGroup
}

// Listen binds a QUIC listener on addr.
func Listen(addr string, tlsConfig *tls.Config, handler Handler) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("quicbridge: resolve addr: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("quicbridge: listen udp: %w", err)
	}

	listener, err := quic.Listen(udpConn, tlsConfig, defaultQUICConfig())
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("quicbridge: listen quic: %w", err)
	}

	log.Printf("quicbridge: listening on %s", addr)
	return &Server{listener: listener, handler: handler}, nil
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("quicbridge: accept: %w", err)
		}

		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			conn.CloseWithError(1, "failed to accept stream")
			continue
		}

		c := wrapStream(conn, stream)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer c.Close()
			s.handler(c)
		}()
	}
}

// Close shuts down the listener and waits for in-flight handlers to return.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}
