// Package ledger owns the authoritative transaction collection.
//
// The in-memory collection is the source of truth for the running
// session. Every mutation triggers a fire-and-forget write of the whole
// collection to the injected backend; a failed write is logged and never
// rolls back the mutation.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	items   []core.Transaction

	// in-flight persistence writes, awaited by Flush
	writes sync.WaitGroup

	// writeMu serializes backend writes; seq (guarded by mu) stamps each
	// snapshot and written (guarded by writeMu) records the newest
	// snapshot that reached the backend.
	writeMu sync.Mutex
	seq     uint64
	written uint64

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithClock overrides the creation timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the collection from the persisted record. It fails soft:
// a missing, unreadable or malformed record leaves the store empty and
// is surfaced only through logging, never as an error.
func (s *Store) Load(ctx context.Context) {
	payload, err := s.backend.Load(ctx, storage.TransactionsRecord)
	if err != nil {
		slog.WarnContext(ctx, "Ledger load failed, starting empty", "error", err)
		return
	}
	if payload == nil {
		return
	}

	var items []core.Transaction
	if err := json.Unmarshal(payload, &items); err != nil {
		slog.WarnContext(ctx, "Ledger record malformed, starting empty",
			"error", err, "bytes", len(payload))
		return
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	slog.InfoContext(ctx, "Ledger loaded", "transactions", len(items))
}

// Add assigns a fresh id and creation timestamp, prepends the record
// (newest-created-first) and triggers an asynchronous persistence write.
// Input is not validated here; validation is advisory and happens at the
// API boundary.
func (s *Store) Add(ctx context.Context, in core.TransactionInput) core.Transaction {
	t := core.Transaction{
		ID:          s.newID(),
		AmountCents: in.AmountCents,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Date:        in.Date,
		Type:        in.Type,
		ImageURI:    in.ImageURI,
		Notes:       in.Notes,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction{t}, s.items...)
	s.persistLocked(ctx)

	return t
}

// Update merges the patch over the record with the given id. A missing
// id is a silent no-op. ID and CreatedAt cannot change; the patch type
// has no such fields.
func (s *Store) Update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.items {
		if t.ID == id {
			s.items[i] = patch.Apply(t)
			s.persistLocked(ctx)
			return s.items[i], true
		}
	}
	return core.Transaction{}, false
}

// Delete removes the record with the given id. A missing id is a silent
// no-op and reports false.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// ClearAll empties the collection unconditionally.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked(ctx)
}

// Get returns the record with the given id, if present.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// Snapshot returns a copy of the collection in storage order
// (newest-created-first).
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of transactions in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Flush waits for all in-flight persistence writes. Used on shutdown
// and in tests; callers of mutations never block on persistence.
func (s *Store) Flush() {
	s.writes.Wait()
}

// persistLocked snapshots the collection and writes it out on a
// goroutine so mutation callers return immediately. Must be called with
// s.mu held. Writes are serialized and sequence-checked: a snapshot is
// skipped when a newer one already reached the backend, so a slow older
// write can never end up as the durable record.
func (s *Store) persistLocked(ctx context.Context) {
	s.seq++
	seq := s.seq
	snapshot := make([]core.Transaction, len(s.items))
	copy(snapshot, s.items)

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()

		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if seq <= s.written {
			return
		}

		payload, err := json.Marshal(snapshot)
		if err != nil {
			slog.ErrorContext(ctx, "Ledger snapshot marshal failed", "error", err)
			return
		}
		// The write outlives the request that triggered it.
		if err := s.backend.Save(context.WithoutCancel(ctx), storage.TransactionsRecord, payload); err != nil {
			slog.ErrorContext(ctx, "Ledger persistence failed",
				"error", err, "transactions", len(snapshot))
			return
		}
		s.written = seq
	}()
}
