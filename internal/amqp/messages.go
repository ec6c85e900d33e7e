package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
	OpCleared Op = "cleared"
)

type Op string

// LedgerEvent is a lightweight notification that the ledger changed.
// Consumers reload the snapshot from storage; the event carries only the
// mutated id (empty for clears).
type LedgerEvent struct {
	Op            Op        `json:"op"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(op Op, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Op:            op,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
