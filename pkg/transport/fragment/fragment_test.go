package fragment

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestSplitReassembleRoundTrip(t *testing.T) {
	payload := make([]byte, MaxFragmentPayload*3+500)
	rand.New(rand.NewSource(1)).Read(payload)

	fragments, err := Split(payload)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(fragments) != 4 {
		t.Fatalf("expected 4 fragments, got %d", len(fragments))
	}

	got, err := Reassemble(fragments)
	if err != nil {
		t.Fatalf("Reassemble() failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("reassembled payload does not match original")
	}
}

func TestSplitSingleFragmentForSmallPayload(t *testing.T) {
	payload := []byte("short message")
	fragments, err := Split(payload)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	got, err := Reassemble(fragments)
	if err != nil {
		t.Fatalf("Reassemble() failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("reassembled payload mismatch")
	}
}

func TestSplitRejectsEmptyPayload(t *testing.T) {
	if _, err := Split(nil); err != ErrEmptyPayload {
		t.Errorf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestEncodeDecodeFragment(t *testing.T) {
	fragments, err := Split([]byte("round trip through wire bytes"))
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	encoded := fragments[0].Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if decoded.MsgID != fragments[0].MsgID || decoded.Index != fragments[0].Index || decoded.Total != fragments[0].Total {
		t.Error("decoded fragment header mismatch")
	}
	if !bytes.Equal(decoded.Data, fragments[0].Data) {
		t.Error("decoded fragment data mismatch")
	}
}

func TestDecodeRejectsShortFragment(t *testing.T) {
	if _, err := Decode(make([]byte, 3)); err != ErrFragmentTooShort {
		t.Errorf("expected ErrFragmentTooShort, got %v", err)
	}
}

func TestReassemblerOutOfOrderDelivery(t *testing.T) {
	payload := make([]byte, MaxFragmentPayload*2+100)
	rand.New(rand.NewSource(2)).Read(payload)
	fragments, err := Split(payload)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	r := NewReassembler()
	order := []int{2, 0, 1}
	var final []byte
	var complete bool
	for _, idx := range order {
		final, complete, err = r.Add(fragments[idx])
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	if !complete {
		t.Fatal("expected reassembly to complete after last fragment")
	}
	if !bytes.Equal(final, payload) {
		t.Error("reassembled payload mismatch after out-of-order delivery")
	}
	if r.Pending() != 0 {
		t.Errorf("expected 0 pending messages, got %d", r.Pending())
	}
}

func TestReassemblerIncompleteReturnsFalse(t *testing.T) {
	payload := make([]byte, MaxFragmentPayload*2+1)
	fragments, err := Split(payload)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	r := NewReassembler()
	_, complete, err := r.Add(fragments[0])
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if complete {
		t.Error("expected incomplete reassembly after only 1 of 3 fragments")
	}
	if r.Pending() != 1 {
		t.Errorf("expected 1 pending message, got %d", r.Pending())
	}
}

func TestPaddingProfileRoundTrip(t *testing.T) {
	profile := PaddingProfile{Sizes: []int{256, 1024, 4096}}
	plaintext := []byte("a message that should round trip through padding")

	padded, err := profile.Pad(plaintext)
	if err != nil {
		t.Fatalf("Pad() failed: %v", err)
	}
	if len(padded) != 256 {
		t.Errorf("expected quantized size 256, got %d", len(padded))
	}

	got, err := Unpad(padded)
	if err != nil {
		t.Fatalf("Unpad() failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("unpadded plaintext mismatch")
	}
}

func TestPaddingProfileRejectsOversizedPlaintext(t *testing.T) {
	profile := PaddingProfile{Sizes: []int{64}}
	if _, err := profile.Pad(make([]byte, 100)); err != ErrNoSizeFits {
		t.Errorf("expected ErrNoSizeFits, got %v", err)
	}
}

func TestBurstProfilePlanWithinRange(t *testing.T) {
	profile := BurstProfile{MinLeading: 1, MaxLeading: 5, MinTrailing: 0, MaxTrailing: 3}
	for i := 0; i < 20; i++ {
		leading, trailing, err := profile.Plan()
		if err != nil {
			t.Fatalf("Plan() failed: %v", err)
		}
		if leading < 1 || leading > 5 {
			t.Errorf("leading %d out of range [1,5]", leading)
		}
		if trailing < 0 || trailing > 3 {
			t.Errorf("trailing %d out of range [0,3]", trailing)
		}
	}
}
