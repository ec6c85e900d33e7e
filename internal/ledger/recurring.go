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

// RecurringStore owns the recurring-transaction templates, persisted
// under their own record with the same wholesale-write contract as the
// main ledger.
type RecurringStore struct {
	mu      sync.Mutex
	backend storage.Backend
	items   []core.RecurringTransaction

	writes sync.WaitGroup

	// same write-ordering scheme as Store
	writeMu sync.Mutex
	seq     uint64
	written uint64

	now   func() time.Time
	newID func() string
}

func NewRecurringStore(backend storage.Backend, opts ...RecurringOption) *RecurringStore {
	s := &RecurringStore{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RecurringOption func(*RecurringStore)

func WithRecurringClock(now func() time.Time) RecurringOption {
	return func(s *RecurringStore) { s.now = now }
}

func WithRecurringIDGenerator(newID func() string) RecurringOption {
	return func(s *RecurringStore) { s.newID = newID }
}

// Load restores templates from the persisted record, failing soft like
// the main ledger store.
func (s *RecurringStore) Load(ctx context.Context) {
	payload, err := s.backend.Load(ctx, storage.RecurringRecord)
	if err != nil {
		slog.WarnContext(ctx, "Recurring load failed, starting empty", "error", err)
		return
	}
	if payload == nil {
		return
	}

	var items []core.RecurringTransaction
	if err := json.Unmarshal(payload, &items); err != nil {
		slog.WarnContext(ctx, "Recurring record malformed, starting empty", "error", err)
		return
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	slog.InfoContext(ctx, "Recurring templates loaded", "templates", len(items))
}

func (s *RecurringStore) Add(ctx context.Context, rt core.RecurringTransaction) core.RecurringTransaction {
	rt.ID = s.newID()
	rt.CreatedAt = s.now()
	rt.LastRun = time.Time{}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.RecurringTransaction{rt}, s.items...)
	s.persistLocked(ctx)

	return rt
}

func (s *RecurringStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rt := range s.items {
		if rt.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// MarkRun stamps the template's last materialization time.
func (s *RecurringStore) MarkRun(ctx context.Context, id string, when time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rt := range s.items {
		if rt.ID == id {
			s.items[i].LastRun = when
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

func (s *RecurringStore) Snapshot() []core.RecurringTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringTransaction, len(s.items))
	copy(out, s.items)
	return out
}

func (s *RecurringStore) Flush() {
	s.writes.Wait()
}

func (s *RecurringStore) persistLocked(ctx context.Context) {
	s.seq++
	seq := s.seq
	snapshot := make([]core.RecurringTransaction, len(s.items))
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
			slog.ErrorContext(ctx, "Recurring snapshot marshal failed", "error", err)
			return
		}
		if err := s.backend.Save(context.WithoutCancel(ctx), storage.RecurringRecord, payload); err != nil {
			slog.ErrorContext(ctx, "Recurring persistence failed",
				"error", err, "templates", len(snapshot))
			return
		}
		s.written = seq
	}()
}
