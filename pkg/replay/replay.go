// Package replay implements the bounded, mutex-guarded replay cache shared
// across a host's inbound packet handling.
package replay

import (
	"container/list"
	"sync"

	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// DefaultCapacity is the entry count named for the shared replay cache.
const DefaultCapacity = 10_000

type key struct {
	senderPub [32]byte
	frameHash [32]byte
}

// Cache is a bounded LRU keyed by (sender_pub, blake3(frame)). It is an
// owned struct, not a package-level singleton; a host constructs one and
// shares it across its inbound handlers under its own lifetime.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[key]*list.Element
}

// New constructs a Cache bounded to capacity entries. capacity <= 0 falls
// back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[key]*list.Element, capacity),
	}
}

// Observe records one observation of frame from senderPub and reports
// whether this is the first time the pair has been seen. A false return
// means the frame is a replay and must be dropped by the caller.
func (c *Cache) Observe(senderPub [32]byte, frame []byte) bool {
	frameHash := primitives.Blake3Sum256(frame)
	k := key{senderPub: senderPub, frameHash: frameHash}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[k]; ok {
		c.ll.MoveToFront(elem)
		return false
	}

	elem := c.ll.PushFront(k)
	c.items[k] = elem

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(key))
		}
	}
	return true
}

// Len reports the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
