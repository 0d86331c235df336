package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"budgetbook/internal/core"
)

func TestMaterializeRequest_JSON(t *testing.T) {
	original := NewMaterializeRequest("req-1", core.Period{Year: 2024, Month: 2})
	if time.Since(original.Timestamp) > time.Second {
		t.Errorf("expected a fresh timestamp, got %v", original.Timestamp)
	}

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(data), `"month":2`) {
		t.Errorf("month should be encoded 1-based, got %s", data)
	}

	decoded, err := MaterializeRequestFromJSON(data)
	if err != nil {
		t.Fatalf("MaterializeRequestFromJSON: %v", err)
	}
	if decoded.RequestID != "req-1" || decoded.Period() != original.Period() {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestMaterializeRequestFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{invalid"},
		{"month zero", `{"request_id":"a","year":2025,"month":0}`},
		{"month thirteen", `{"request_id":"a","year":2025,"month":13}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MaterializeRequestFromJSON([]byte(tt.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNewLedgerEvent(t *testing.T) {
	e := core.Entry{ID: "e1", TemplateID: "t1", Date: core.NewDate(2025, 3, 31)}
	ev := NewLedgerEvent(EntryCreated, e)
	if ev.Action != EntryCreated || ev.EntryID != "e1" || ev.TemplateID != "t1" || ev.Period != "2025-03" {
		t.Fatalf("unexpected event %+v", ev)
	}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := LedgerEventFromJSON(data)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}
	if decoded.EntryID != ev.EntryID || decoded.Period != ev.Period {
		t.Errorf("decoded = %+v", decoded)
	}

	deleted := NewLedgerEvent(EntryDeleted, core.Entry{ID: "e2"})
	if deleted.Period != "" {
		t.Errorf("period should be empty without a date, got %q", deleted.Period)
	}
}

func TestEventsQueue(t *testing.T) {
	if got := EventsQueue("budgetbook.materialize"); got != "budgetbook.materialize.events" {
		t.Errorf("EventsQueue = %q", got)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestHandleMaterializeDelivery(t *testing.T) {
	valid := `{"request_id":"r","year":2025,"month":4}`
	tests := []struct {
		name       string
		body       string
		handlerErr error
		wantAck    bool
		wantCalled bool
	}{
		{"success", valid, nil, true, true},
		{"handler failure is dropped", valid, errors.New("boom"), false, true},
		{"bad payload", "nope", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			handleMaterializeDelivery(context.Background(), []byte(tt.body), ack, func(_ context.Context, m *MaterializeRequest) error {
				called = true
				if m.Month != 4 {
					t.Errorf("month = %d, want 4", m.Month)
				}
				return tt.handlerErr
			})
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acked != tt.wantAck || ack.nacked == tt.wantAck {
				t.Errorf("acked=%v nacked=%v, want ack=%v", ack.acked, ack.nacked, tt.wantAck)
			}
			if ack.requeued {
				t.Error("deliveries must never be requeued")
			}
		})
	}
}

func TestHandleLedgerDelivery(t *testing.T) {
	valid := `{"action":"created","entry_id":"e1","period":"2025-03"}`
	tests := []struct {
		name         string
		body         string
		redelivered  bool
		handlerErr   error
		wantAck      bool
		wantRequeued bool
	}{
		{"success", valid, false, nil, true, false},
		{"first failure is requeued", valid, false, errors.New("quota"), false, true},
		{"second failure is dropped", valid, true, errors.New("quota"), false, false},
		{"bad payload", "{", false, nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			handleLedgerDelivery(context.Background(), []byte(tt.body), tt.redelivered, ack, func(_ context.Context, ev *LedgerEvent) error {
				if ev.EntryID != "e1" || ev.Period != "2025-03" {
					t.Errorf("event = %+v", ev)
				}
				return tt.handlerErr
			})
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if ack.requeued != tt.wantRequeued {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeued)
			}
		})
	}
}
