// Package storage provides durable named-record persistence.
//
// The ledger persists each collection wholesale as a single serialized
// record under a fixed key, read once at startup and rewritten on every
// mutation. Backends only move bytes; serialization belongs to the owner
// of the record.
package storage

import "context"

// Record keys for the collections the application persists.
const (
	TransactionsRecord = "transactions-storage"
	RecurringRecord    = "recurring-storage"
)

// Backend is a named-record blob store.
type Backend interface {
	// Load returns the payload stored under key, or (nil, nil) when no
	// record exists yet.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the record under key with payload.
	Save(ctx context.Context, key string, payload []byte) error

	Close() error
}
