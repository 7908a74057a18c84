package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// TransactionSnapshot is the committed state of a transaction, with the
// account and category names resolved so consumers need no database access.
type TransactionSnapshot struct {
	ID           int64      `json:"id"`
	AccountID    int64      `json:"account_id"`
	AccountName  string     `json:"account_name"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
	Kind         core.Kind  `json:"kind"`
	Amount       core.Money `json:"amount"`
	Note         string     `json:"note"`
	Date         core.Date  `json:"date"`
	RecurringID  *int64     `json:"recurring_id,omitempty"`
}

// TransactionEvent is published once per committed transaction write.
type TransactionEvent struct {
	EventID     string              `json:"event_id"`
	Type        EventType           `json:"type"`
	UserID      core.UserID         `json:"user_id"`
	Transaction TransactionSnapshot `json:"transaction"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewTransactionEvent stamps a fresh event id and timestamp.
func NewTransactionEvent(typ EventType, userID core.UserID, snap TransactionSnapshot) *TransactionEvent {
	return &TransactionEvent{
		EventID:     uuid.NewString(),
		Type:        typ,
		UserID:      userID,
		Transaction: snap,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.Transaction.ID <= 0 {
		return nil, fmt.Errorf("event %s has no transaction id", msg.EventID)
	}
	return &msg, nil
}
