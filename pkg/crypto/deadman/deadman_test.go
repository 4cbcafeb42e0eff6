package deadman

import (
	"errors"
	"testing"
	"time"
)

func TestNewRejectsShortInterval(t *testing.T) {
	_, err := New(Config{Enabled: true, IntervalHours: 23})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestEvaluateOKBeforeDeadline(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 48, GracePeriods: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	res := sw.Evaluate(now.Add(1 * time.Hour))
	if res.Status != StatusOK {
		t.Errorf("expected StatusOK, got %v", res.Status)
	}
}

func TestEvaluateWarningWithin24Hours(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 24, GracePeriods: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	res := sw.Evaluate(now.Add(23 * time.Hour))
	if res.Status != StatusWarning {
		t.Errorf("expected StatusWarning, got %v", res.Status)
	}
}

func TestEvaluateDisabled(t *testing.T) {
	sw, err := New(Config{Enabled: false, IntervalHours: 24, GracePeriods: 0})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	res := sw.Evaluate(time.Now())
	if res.Status != StatusDisabled {
		t.Errorf("expected StatusDisabled, got %v", res.Status)
	}
}

func TestEvaluateTriggersAfterGracePeriodsExhausted(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 24, GracePeriods: 2, NotifyContactID: "contact-1"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Simulate missing the deadline three times without check-in, each
	// evaluation moving further past the original deadline.
	past := now.Add(25 * time.Hour)
	if res := sw.Evaluate(past); res.Status != StatusWarning {
		t.Fatalf("1st miss: expected StatusWarning, got %v", res.Status)
	}
	if res := sw.Evaluate(past); res.Status != StatusWarning {
		t.Fatalf("2nd miss: expected StatusWarning, got %v", res.Status)
	}
	res := sw.Evaluate(past)
	if res.Status != StatusTriggered {
		t.Fatalf("3rd miss: expected StatusTriggered, got %v", res.Status)
	}
	if res.WipeAction == nil {
		t.Fatal("expected non-nil WipeAction on trigger")
	}
	if !res.WipeAction.ZeroizeInMemoryKeys || !res.WipeAction.DestroyPersistedKey || !res.WipeAction.DestroyBackup {
		t.Error("expected all core wipe flags set")
	}
	if !res.WipeAction.NotifyTrustedContact {
		t.Error("expected NotifyTrustedContact since notify_contact_id is set")
	}
}

func TestTriggeredIsSticky(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 24, GracePeriods: 0})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	past := now.Add(25 * time.Hour)
	for i := 0; i < 3; i++ {
		sw.Evaluate(past)
	}
	if !sw.Triggered() {
		t.Fatal("expected switch to be triggered")
	}
	res := sw.Evaluate(now)
	if res.Status != StatusTriggered {
		t.Errorf("expected StatusTriggered to persist, got %v", res.Status)
	}
}

func TestCheckInResetsMissedPeriods(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 24, GracePeriods: 5})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	sw.Evaluate(now.Add(25 * time.Hour))
	if sw.MissedPeriods() != 1 {
		t.Fatalf("expected 1 missed period, got %d", sw.MissedPeriods())
	}
	if err := sw.CheckIn(now.Add(25 * time.Hour)); err != nil {
		t.Fatalf("CheckIn() failed: %v", err)
	}
	if sw.MissedPeriods() != 0 {
		t.Errorf("expected missed periods reset to 0, got %d", sw.MissedPeriods())
	}
}

func TestMutationFailsAfterTrigger(t *testing.T) {
	now := time.Now()
	sw, err := New(Config{Enabled: true, IntervalHours: 24, GracePeriods: 0})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		sw.Evaluate(now.Add(25 * time.Hour))
	}
	if !sw.Triggered() {
		t.Fatal("expected switch to be triggered")
	}
	if err := sw.CheckIn(now); err != ErrAlreadyTriggered {
		t.Errorf("expected ErrAlreadyTriggered from CheckIn, got %v", err)
	}
	if err := sw.Reconfigure(48, 1, ""); err != ErrAlreadyTriggered {
		t.Errorf("expected ErrAlreadyTriggered from Reconfigure, got %v", err)
	}
	if err := sw.Disable(); err != ErrAlreadyTriggered {
		t.Errorf("expected ErrAlreadyTriggered from Disable, got %v", err)
	}
	if err := sw.Enable(now); err != ErrAlreadyTriggered {
		t.Errorf("expected ErrAlreadyTriggered from Enable, got %v", err)
	}
}

func TestReconfigureRejectsInvalidInterval(t *testing.T) {
	sw, err := New(Config{Enabled: true, IntervalHours: 48, GracePeriods: 0})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := sw.Reconfigure(10, 0, ""); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}
