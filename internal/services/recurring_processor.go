package services

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
)

// RecurringProcessor materializes due recurring templates into ledger
// transactions.
type RecurringProcessor struct {
	templates *ledger.RecurringStore
	ledger    *LedgerService
}

func NewRecurringProcessor(templates *ledger.RecurringStore, ledgerService *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		templates: templates,
		ledger:    ledgerService,
	}
}

// ProcessDue walks every template and creates a transaction for each one
// that is due at now. A failing template is skipped, never aborting the
// whole run. Returns the number of transactions created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	all := p.templates.Snapshot()

	slog.InfoContext(ctx, "Processing recurring templates",
		"total", len(all),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, rt := range all {
		if now.Before(rt.StartDate) {
			continue
		}
		if !rt.EndDate.IsZero() && now.After(rt.EndDate) {
			continue
		}

		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with unknown frequency",
				"id", rt.ID, "every", rt.Every)
			continue
		}
		if !checker.IsDue(rt.LastRun, now, rt.StartDate) {
			continue
		}

		t := p.ledger.Create(ctx, core.TransactionInput{
			AmountCents: rt.AmountCents,
			Description: rt.Description,
			CategoryID:  rt.CategoryID,
			Date:        now,
			Type:        rt.Type,
			Notes:       rt.Notes,
		})

		if !p.templates.MarkRun(ctx, rt.ID, now) {
			// Template vanished mid-run; the transaction stays.
			slog.WarnContext(ctx, "Could not stamp last run", "template_id", rt.ID)
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", rt.ID,
			"transaction_id", t.ID,
			"description", rt.Description,
			"amount_cents", rt.AmountCents,
			"frequency", rt.Every)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(all))

	return processed, nil
}
