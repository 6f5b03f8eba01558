package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/core"
)

// EventOp names the mutation a TransactionEvent reports.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// TransactionEvent is published after the store confirmed a mutation.
// Transaction is nil for deletions.
type TransactionEvent struct {
	Op          EventOp           `json:"op"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid transaction event")

// NewUpsertEvent reports a created or updated transaction.
func NewUpsertEvent(op EventOp, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{Op: op, ID: t.ID, Transaction: &t, Timestamp: time.Now()}
}

// NewDeleteEvent reports a deleted transaction.
func NewDeleteEvent(id string) *TransactionEvent {
	return &TransactionEvent{Op: OpDeleted, ID: id, Timestamp: time.Now()}
}

func (e *TransactionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	switch e.Op {
	case OpCreated, OpUpdated:
		if e.Transaction == nil {
			return fmt.Errorf("%w: %s without transaction", ErrInvalidEvent, e.Op)
		}
		if e.Transaction.ID != e.ID {
			return fmt.Errorf("%w: id mismatch", ErrInvalidEvent)
		}
	case OpDeleted:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidEvent, e.Op)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
