package amqp

import (
	"encoding/json"
	"time"
)

// Recompute scopes. A month-scoped message re-derives insights for one
// calendar month; a full-scoped message re-derives everything.
const (
	ScopeMonth = "month"
	ScopeFull  = "full"
)

// RecomputeMessage asks the worker to re-run aggregation and insight
// generation. It carries only the scope; the worker loads the current
// snapshot from the store.
type RecomputeMessage struct {
	Scope     string    `json:"scope"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMonthRecompute creates a message scoped to one calendar month.
func NewMonthRecompute(year int, month time.Month) *RecomputeMessage {
	return &RecomputeMessage{
		Scope:     ScopeMonth,
		Year:      year,
		Month:     int(month),
		Timestamp: time.Now(),
	}
}

// NewFullRecompute creates a message covering the whole dataset.
func NewFullRecompute() *RecomputeMessage {
	return &RecomputeMessage{
		Scope:     ScopeFull,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON creates a message from JSON bytes
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
