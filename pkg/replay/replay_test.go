package replay

import "testing"

func TestObserveFirstTimeIsNotReplay(t *testing.T) {
	c := New(10)
	var sender [32]byte
	sender[0] = 1
	if !c.Observe(sender, []byte("frame one")) {
		t.Error("expected first observation to report not-a-replay")
	}
}

func TestObserveSecondTimeIsReplay(t *testing.T) {
	c := New(10)
	var sender [32]byte
	sender[0] = 1
	c.Observe(sender, []byte("frame one"))
	if c.Observe(sender, []byte("frame one")) {
		t.Error("expected second observation of the same pair to report a replay")
	}
}

func TestObserveDifferentSenderSameFrameIsNotReplay(t *testing.T) {
	c := New(10)
	var senderA, senderB [32]byte
	senderA[0], senderB[0] = 1, 2
	c.Observe(senderA, []byte("shared frame"))
	if !c.Observe(senderB, []byte("shared frame")) {
		t.Error("expected a different sender to not be treated as a replay")
	}
}

func TestObserveDifferentFrameSameSenderIsNotReplay(t *testing.T) {
	c := New(10)
	var sender [32]byte
	sender[0] = 1
	c.Observe(sender, []byte("frame one"))
	if !c.Observe(sender, []byte("frame two")) {
		t.Error("expected a different frame from the same sender to not be treated as a replay")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	var sender [32]byte
	sender[0] = 1

	c.Observe(sender, []byte("a"))
	c.Observe(sender, []byte("b"))
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	// Touch "a" so "b" becomes least recently used.
	c.Observe(sender, []byte("a"))
	c.Observe(sender, []byte("c"))
	if c.Len() != 2 {
		t.Fatalf("expected capacity to stay bounded at 2, got %d", c.Len())
	}

	// "b" should have been evicted, so re-observing it looks like a fresh entry.
	if !c.Observe(sender, []byte("b")) {
		t.Error("expected evicted entry to be treated as a fresh observation")
	}
}

func TestNewFallsBackToDefaultCapacity(t *testing.T) {
	c := New(0)
	if c.capacity != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, c.capacity)
	}
}
