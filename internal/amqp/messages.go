package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry kinds
const (
	KindRevenue = "revenue"
	KindExpense = "expense"
)

// Actions
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// EntryChanged announces that a user's ledger changed. It carries identifiers
// only; consumers reload whatever they need from the remote API.
type EntryChanged struct {
	OwnerID   int64     `json:"owner_id"`
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	EntryID   int64     `json:"entry_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryChanged stamps a new event with the current time.
func NewEntryChanged(ownerID int64, kind, action string, entryID int64) *EntryChanged {
	return &EntryChanged{
		OwnerID:   ownerID,
		Kind:      kind,
		Action:    action,
		EntryID:   entryID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *EntryChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryChangedFromJSON decodes and checks a message body.
func EntryChangedFromJSON(data []byte) (*EntryChanged, error) {
	var msg EntryChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID <= 0 {
		return nil, fmt.Errorf("invalid owner id %d", msg.OwnerID)
	}
	switch msg.Kind {
	case KindRevenue, KindExpense:
	default:
		return nil, fmt.Errorf("unknown entry kind %q", msg.Kind)
	}
	return &msg, nil
}
