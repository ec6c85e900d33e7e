package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage/memory"
)

func newTestProcessor(t *testing.T) (*RecurringProcessor, *ledger.RecurringStore, *LedgerService) {
	t.Helper()
	backend := memory.New()
	templates := ledger.NewRecurringStore(backend)
	svc := NewLedgerService(ledger.NewStore(backend), nil)
	return NewRecurringProcessor(templates, svc), templates, svc
}

func TestProcessDue_CreatesTransactionsForDueTemplates(t *testing.T) {
	proc, templates, svc := newTestProcessor(t)
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Monthly,
		AmountCents: 120000,
		Description: "monthly rent",
		CategoryID:  "housing",
		Type:        core.Expense,
	})

	processed, err := proc.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	txs := svc.Snapshot()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Description != "monthly rent" || txs[0].AmountCents != 120000 {
		t.Errorf("unexpected transaction: %+v", txs[0])
	}
	if !txs[0].Date.Equal(now) {
		t.Errorf("date = %v, want %v", txs[0].Date, now)
	}
}

func TestProcessDue_StampsLastRunAndSkipsSecondPass(t *testing.T) {
	proc, templates, _ := newTestProcessor(t)
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Daily,
		AmountCents: 500,
		Description: "daily coffee",
		CategoryID:  "food",
		Type:        core.Expense,
	})

	if n, _ := proc.ProcessDue(context.Background(), now); n != 1 {
		t.Fatalf("first pass processed = %d, want 1", n)
	}

	stamped := templates.Snapshot()[0]
	if !stamped.LastRun.Equal(now) {
		t.Errorf("last run = %v, want %v", stamped.LastRun, now)
	}

	// Same day again: nothing due.
	if n, _ := proc.ProcessDue(context.Background(), now.Add(2*time.Hour)); n != 0 {
		t.Errorf("second pass processed = %d, want 0", n)
	}
}

func TestProcessDue_RespectsStartAndEndDates(t *testing.T) {
	proc, templates, _ := newTestProcessor(t)

	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Daily,
		AmountCents: 100,
		Description: "starts in future",
		CategoryID:  "other",
		Type:        core.Expense,
	})
	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Daily,
		AmountCents: 100,
		Description: "already ended",
		CategoryID:  "other",
		Type:        core.Expense,
	})

	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	if n, _ := proc.ProcessDue(context.Background(), now); n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
}

func TestProcessDue_SkipsUnknownFrequency(t *testing.T) {
	proc, templates, _ := newTestProcessor(t)

	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Repetition("fortnightly"),
		AmountCents: 100,
		Description: "bad frequency",
		CategoryID:  "other",
		Type:        core.Expense,
	})
	templates.Add(context.Background(), core.RecurringTransaction{
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Every:       core.Weekly,
		AmountCents: 200,
		Description: "weekly allowance",
		CategoryID:  "other",
		Type:        core.Income,
	})

	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	if n, _ := proc.ProcessDue(context.Background(), now); n != 1 {
		t.Errorf("processed = %d, want 1 (bad template skipped)", n)
	}
}
