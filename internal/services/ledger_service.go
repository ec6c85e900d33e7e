package services

import (
	"context"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
)

// EventPublisher emits ledger change notifications. *amqp.Client
// implements it; a nil publisher disables events entirely.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger mutations and change events. The
// store mutation always wins: a publish failure is logged and never
// fails or rolls back the operation.
type LedgerService struct {
	store  *ledger.Store
	events EventPublisher
}

func NewLedgerService(store *ledger.Store, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
	}
}

func (s *LedgerService) Create(ctx context.Context, in core.TransactionInput) core.Transaction {
	t := s.store.Add(ctx, in)

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.AmountCents,
		"category_id", t.CategoryID)

	s.publish(ctx, amqp.OpCreated, t.ID)
	return t
}

func (s *LedgerService) Update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, bool) {
	t, ok := s.store.Update(ctx, id, patch)
	if !ok {
		// Missing id is a silent no-op, not an error.
		slog.DebugContext(ctx, "Update of missing transaction ignored", "id", id)
		return core.Transaction{}, false
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id)
	s.publish(ctx, amqp.OpUpdated, id)
	return t, true
}

func (s *LedgerService) Delete(ctx context.Context, id string) bool {
	if !s.store.Delete(ctx, id) {
		slog.DebugContext(ctx, "Delete of missing transaction ignored", "id", id)
		return false
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.publish(ctx, amqp.OpDeleted, id)
	return true
}

func (s *LedgerService) ClearAll(ctx context.Context) {
	s.store.ClearAll(ctx)
	slog.InfoContext(ctx, "Ledger cleared")
	s.publish(ctx, amqp.OpCleared, "")
}

func (s *LedgerService) Snapshot() []core.Transaction {
	return s.store.Snapshot()
}

func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	return s.store.Get(id)
}

func (s *LedgerService) publish(ctx context.Context, op amqp.Op, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(op, id)); err != nil {
		// Event delivery is best-effort; local state already changed.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "transaction_id", id, "error", err)
	}
}

// Close flushes pending persistence writes.
func (s *LedgerService) Close() error {
	s.store.Flush()
	return nil
}
