// Package worker contains the background export worker. It listens for
// ledger change events and mirrors the persisted snapshot into
// timestamped JSON files, so there is always an offline copy of the
// ledger outside the database.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/amqp"
	"tally/internal/storage"
)

// ExportWorker reads the persisted transaction record and writes it out
// as export files. It never touches the in-memory ledger; the persisted
// record is the exchange point between the API process and the worker.
type ExportWorker struct {
	backend   storage.Backend
	exportDir string

	now func() time.Time
}

func NewExportWorker(backend storage.Backend, exportDir string) *ExportWorker {
	return &ExportWorker{
		backend:   backend,
		exportDir: exportDir,
		now:       time.Now,
	}
}

// HandleLedgerEvent processes a single change notification. Every event
// triggers a fresh export; the event only says that something changed,
// the snapshot is always re-read from storage.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", ev.Op,
		"transaction_id", ev.TransactionID)

	if _, err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s event: %w", ev.Op, err)
	}
	return nil
}

// Export writes the current persisted snapshot to a timestamped file
// and refreshes the latest.json convenience copy. Returns the path of
// the timestamped file. An absent record exports an empty collection.
func (w *ExportWorker) Export(ctx context.Context) (string, error) {
	payload, err := w.backend.Load(ctx, storage.TransactionsRecord)
	if err != nil {
		return "", fmt.Errorf("load transaction record: %w", err)
	}
	if payload == nil {
		payload = []byte("[]")
	}

	if err := os.MkdirAll(w.exportDir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("transactions-%s.json", w.now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(w.exportDir, name)

	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	latest := filepath.Join(w.exportDir, "latest.json")
	if err := os.WriteFile(latest, payload, 0644); err != nil {
		// The timestamped export succeeded; a stale latest.json is
		// tolerable.
		slog.WarnContext(ctx, "Failed to refresh latest export", "error", err)
	}

	slog.InfoContext(ctx, "Ledger exported", "path", path, "bytes", len(payload))
	return path, nil
}

// RunPeriodic exports on a fixed interval until the context is
// cancelled. It backstops lost events: even if every notification is
// missed, exports stay at most one interval stale.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}
