package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestFileLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileLogger(&buf)

	err := logger.Record(context.Background(), &Event{
		ID:           "ev1",
		EstateID:     "e1",
		ActorID:      "u1",
		Action:       ActionCreate,
		ResourceType: "note",
		ResourceID:   "n1",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["estate_id"] != "e1" || line["action"] != ActionCreate {
		t.Errorf("unexpected fields: %v", line)
	}
}

type stubLogger struct {
	events []*Event
	err    error
}

func (s *stubLogger) Record(_ context.Context, event *Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestMultiLoggerAttemptsAll(t *testing.T) {
	failing := &stubLogger{err: errors.New("disk full")}
	healthy := &stubLogger{}
	multi := NewMultiLogger(failing, healthy)

	err := multi.Record(context.Background(), &Event{ID: "ev1"})
	if err == nil || err.Error() != "disk full" {
		t.Errorf("error = %v, want first failure surfaced", err)
	}
	if len(healthy.events) != 1 {
		t.Error("later logger skipped after failure")
	}
}
