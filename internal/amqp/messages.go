package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgetbook/internal/core"
)

// MaterializeRequest asks a worker to materialize the active templates into
// the given period.
type MaterializeRequest struct {
	RequestID string    `json:"request_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"` // 1-12
	Timestamp time.Time `json:"timestamp"`
}

// NewMaterializeRequest creates a request stamped with the current time
func NewMaterializeRequest(requestID string, p core.Period) *MaterializeRequest {
	return &MaterializeRequest{
		RequestID: requestID,
		Year:      p.Year,
		Month:     p.Month,
		Timestamp: time.Now().UTC(),
	}
}

// Period returns the requested period.
func (m *MaterializeRequest) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

// ToJSON converts the message to JSON bytes
func (m *MaterializeRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MaterializeRequestFromJSON decodes and validates a request.
func MaterializeRequestFromJSON(data []byte) (*MaterializeRequest, error) {
	var msg MaterializeRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Period().Validate(); err != nil {
		return nil, fmt.Errorf("materialize request %q: %w", msg.RequestID, err)
	}
	return &msg, nil
}

// LedgerAction is what happened to an entry.
type LedgerAction string

const (
	EntryCreated LedgerAction = "created"
	EntryDeleted LedgerAction = "deleted"
)

// LedgerEvent is published after a ledger write. It carries identifiers only;
// consumers read the entry from the store.
type LedgerEvent struct {
	Action     LedgerAction `json:"action"`
	EntryID    string       `json:"entry_id"`
	TemplateID string       `json:"template_id,omitempty"`
	Period     string       `json:"period,omitempty"` // YYYY-MM
	Timestamp  time.Time    `json:"timestamp"`
}

// NewLedgerEvent describes a write to e.
func NewLedgerEvent(action LedgerAction, e core.Entry) *LedgerEvent {
	ev := &LedgerEvent{
		Action:     action,
		EntryID:    e.ID,
		TemplateID: e.TemplateID,
		Timestamp:  time.Now().UTC(),
	}
	if !e.Date.IsZero() {
		ev.Period = core.Period{Year: e.Date.Year(), Month: e.Date.Month()}.String()
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
