// Package sweeper expires stale pending payments. It is invoked by the
// cleanup endpoint and the cmd/sweeper binary; scheduling lives outside
// the process.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

// DefaultCutoff is how long a pending payment may sit before it is expired
// and its reservation released.
const DefaultCutoff = 120 * time.Minute

const batchLimit = 500

// Store is the slice of the repository the sweeper drives. Each MarkExpired
// call runs its own transaction with the status re-checked under lock, so a
// payment that lands mid-sweep is left alone.
type Store interface {
	ListStalePending(ctx context.Context, kind models.EntityKind, cutoff time.Time, limit int) ([]string, error)
	MarkExpired(ctx context.Context, kind models.EntityKind, id string) (models.Payable, bool, error)
}

// Report summarizes one sweep.
type Report struct {
	Found     int `json:"found"`
	Processed int `json:"processed"`
}

type Sweeper struct {
	store   Store
	cutoffs map[models.EntityKind]time.Duration
	logger  *slog.Logger
}

// New builds a sweeper. Cutoffs may override the default per kind; a zero
// or missing entry falls back to DefaultCutoff.
func New(store Store, cutoffs map[models.EntityKind]time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, cutoffs: cutoffs, logger: logger}
}

func (s *Sweeper) cutoffFor(kind models.EntityKind) time.Duration {
	if d, ok := s.cutoffs[kind]; ok && d > 0 {
		return d
	}
	return DefaultCutoff
}

// Run sweeps all entity kinds once. A failure on one entity is logged and
// counted against processed; the sweep always continues to the next one.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Report, error) {
	return s.RunWithOverride(ctx, now, 0)
}

// RunWithOverride sweeps with one cutoff applied to every kind, used by the
// on-demand cleanup endpoint. A zero override keeps the configured cutoffs.
func (s *Sweeper) RunWithOverride(ctx context.Context, now time.Time, override time.Duration) (Report, error) {
	var report Report
	for _, kind := range []models.EntityKind{models.KindBooking, models.KindPackage, models.KindTeori} {
		cutoffAge := s.cutoffFor(kind)
		if override > 0 {
			cutoffAge = override
		}
		cutoff := now.Add(-cutoffAge)
		ids, err := s.store.ListStalePending(ctx, kind, cutoff, batchLimit)
		if err != nil {
			s.logger.Error("sweep_list_failed", "kind", kind, "error", err)
			continue
		}
		report.Found += len(ids)

		for _, id := range ids {
			payable, transitioned, err := s.store.MarkExpired(ctx, kind, id)
			if err != nil {
				s.logger.Error("sweep_expire_failed", "kind", kind, "id", id, "error", err)
				continue
			}
			if !transitioned {
				// Raced with a webhook or admin action; nothing to do.
				s.logger.Info("sweep_skipped_terminal", "kind", kind, "id", id, "status", payable.PaymentStatus)
				continue
			}
			report.Processed++
			s.logger.Info("sweep_expired", "kind", kind, "id", id)
		}
	}
	return report, nil
}
