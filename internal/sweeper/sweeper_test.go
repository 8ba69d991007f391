package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

type fakeStore struct {
	stale      map[models.EntityKind][]string
	cutoffs    map[models.EntityKind]time.Time
	failIDs    map[string]bool
	terminalID string
	expired    []string
}

func (f *fakeStore) ListStalePending(_ context.Context, kind models.EntityKind, cutoff time.Time, _ int) ([]string, error) {
	if f.cutoffs != nil {
		f.cutoffs[kind] = cutoff
	}
	return f.stale[kind], nil
}

func (f *fakeStore) MarkExpired(_ context.Context, _ models.EntityKind, id string) (models.Payable, bool, error) {
	if f.failIDs[id] {
		return models.Payable{}, false, errors.New("db down")
	}
	if id == f.terminalID {
		return models.Payable{ID: id, PaymentStatus: models.PaymentStatusPaid}, false, nil
	}
	f.expired = append(f.expired, id)
	return models.Payable{ID: id, PaymentStatus: models.PaymentStatusExpired}, true, nil
}

// TestRunExpiresStaleEntities verifies run expires stale entities behavior.
func TestRunExpiresStaleEntities(t *testing.T) {
	t.Parallel()

	store := &fakeStore{stale: map[models.EntityKind][]string{
		models.KindBooking: {"b1", "b2"},
		models.KindTeori:   {"t1"},
	}}
	report, err := New(store, nil, nil).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if report.Found != 3 || report.Processed != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(store.expired) != 3 {
		t.Fatalf("expected 3 expirations, got %v", store.expired)
	}
}

// TestRunContinuesPastFailures verifies run continues past failures behavior.
func TestRunContinuesPastFailures(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		stale:   map[models.EntityKind][]string{models.KindBooking: {"b1", "b2", "b3"}},
		failIDs: map[string]bool{"b2": true},
	}
	report, err := New(store, nil, nil).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if report.Found != 3 || report.Processed != 2 {
		t.Fatalf("one failure should not stop the sweep: %+v", report)
	}
}

// TestRunSkipsRacedTerminal verifies run skips raced terminal behavior.
func TestRunSkipsRacedTerminal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		stale:      map[models.EntityKind][]string{models.KindBooking: {"b1", "b2"}},
		terminalID: "b1",
	}
	report, err := New(store, nil, nil).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if report.Processed != 1 {
		t.Fatalf("paid-in-flight entity must not count as processed: %+v", report)
	}
}

// TestRunPerKindCutoffs verifies run per kind cutoffs behavior.
func TestRunPerKindCutoffs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{stale: map[models.EntityKind][]string{}, cutoffs: map[models.EntityKind]time.Time{}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(store, map[models.EntityKind]time.Duration{models.KindTeori: 30 * time.Minute}, nil)
	if _, err := s.Run(context.Background(), now); err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if got := store.cutoffs[models.KindBooking]; !got.Equal(now.Add(-DefaultCutoff)) {
		t.Fatalf("booking cutoff should use default, got %v", got)
	}
	if got := store.cutoffs[models.KindTeori]; !got.Equal(now.Add(-30 * time.Minute)) {
		t.Fatalf("teori cutoff should use override, got %v", got)
	}
}
