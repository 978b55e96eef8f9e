package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
)

type memorySink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	block  chan struct{}
	err    error
}

func (s *memorySink) Write(_ context.Context, ev domain.AuditEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) snapshot() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

func TestDispatcher_PreservesPerActorOrder(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(4, sink, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		for _, actor := range []string{"alice", "bob", "carol"} {
			d.Record(context.Background(), domain.AuditEvent{
				Action: domain.ActionLogin,
				Actor:  actor,
				Reason: fmt.Sprint(i),
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 150 {
		t.Fatalf("got %d events, want 150", len(events))
	}
	next := map[string]int{}
	for _, ev := range events {
		if ev.Reason != fmt.Sprint(next[ev.Actor]) {
			t.Fatalf("%s: got event %s, want %d", ev.Actor, ev.Reason, next[ev.Actor])
		}
		next[ev.Actor]++
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	d := NewDispatcher(1, sink, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		// One event is held by the blocked worker and channelBuffer fill the
		// queue; the rest must be dropped without blocking.
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(context.Background(), domain.AuditEvent{Actor: "alice"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.block)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := len(sink.snapshot()); got > channelBuffer+1 || got == 0 {
		t.Fatalf("written = %d, want between 1 and %d", got, channelBuffer+1)
	}
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(2, sink, zerolog.Nop())
	d.Start(context.Background())

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	d.Record(context.Background(), domain.AuditEvent{Actor: "alice"})

	if len(sink.snapshot()) != 0 {
		t.Fatal("events recorded after Close must not be written")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDispatcher_SinkErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	sink := &memorySink{err: errors.New("disk full")}
	d := NewDispatcher(1, sink, zerolog.New(&buf))
	d.Start(context.Background())

	d.Record(context.Background(), domain.AuditEvent{Action: domain.ActionRegister, Actor: "alice"})
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("audit write failed")) {
		t.Fatalf("expected a failure log line, got %q", buf.String())
	}
}

func TestLogSink_Write(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	err := sink.Write(context.Background(), domain.AuditEvent{
		Action:    domain.ActionAdminDelete,
		Outcome:   domain.OutcomeFailure,
		Reason:    "forbidden",
		Actor:     "alice",
		ActorID:   7,
		TargetID:  9,
		ClientIP:  "10.0.0.1",
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["level"] != "warn" || line["action"] != "admin_delete" || line["reason"] != "forbidden" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["target_id"] != float64(9) || line["client_ip"] != "10.0.0.1" || line["component"] != "audit" {
		t.Fatalf("unexpected log line: %v", line)
	}
}
