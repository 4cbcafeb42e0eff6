package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func newTestLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	logger, err := NewLogger("crdt", level, "")
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	var buf bytes.Buffer
	logger.output = &buf
	return logger, &buf
}

func TestInfoWritesStructuredJSON(t *testing.T) {
	logger, buf := newTestLogger(t, INFO)
	logger.Info("group created", Fields{"group_id": "abc123"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON entry, got error %v (body: %s)", err, buf.String())
	}
	if entry.Level != "INFO" || entry.Message != "group created" || entry.Component != "crdt" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["group_id"] != "abc123" {
		t.Errorf("expected field group_id=abc123, got %v", entry.Fields["group_id"])
	}
}

func TestBelowLevelIsSuppressed(t *testing.T) {
	logger, buf := newTestLogger(t, WARN)
	logger.Debug("should not appear")
	logger.Info("also should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got %q", buf.String())
	}
}

func TestLogErrorTagsKindAndMessage(t *testing.T) {
	logger, buf := newTestLogger(t, INFO)
	logger.LogError(KindAuthentication, "signature check failed", ErrSampleForTest, nil)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON entry, got error %v", err)
	}
	if entry.ErrorKind != string(KindAuthentication) {
		t.Errorf("expected error_kind=%s, got %s", KindAuthentication, entry.ErrorKind)
	}
	if entry.Fields["error"] != ErrSampleForTest.Error() {
		t.Errorf("expected error field to carry the underlying error text, got %v", entry.Fields["error"])
	}
}

func TestWithFieldsAddsGlobalContext(t *testing.T) {
	logger, buf := newTestLogger(t, INFO)
	logger.WithField("node", "n1")
	logger.Info("hello")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON entry, got error %v", err)
	}
	if entry.Fields["node"] != "n1" {
		t.Errorf("expected global field node=n1 to appear, got %v", entry.Fields["node"])
	}
}

var ErrSampleForTest = errSample{}

type errSample struct{}

func (errSample) Error() string { return "sample error for logging tests" }
