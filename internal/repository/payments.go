package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

const (
	CancelReasonAdminDenied = "admin_denied"
	CancelReasonAutoExpired = "auto_expired"
)

// GetPayable loads the payment slice of one entity without locking it.
func (r *Repository) GetPayable(ctx context.Context, kind models.EntityKind, id string) (models.Payable, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return models.Payable{}, err
	}
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
SELECT id, user_id, %s, currency, payment_method, payment_status, external_reference, created_at, updated_at
FROM %s
WHERE id = $1;`, table.amountCol, table.name), strings.TrimSpace(id))
	return scanPayable(row, kind)
}

// SetExternalReference records the gateway order id a checkout was created
// under. Only pending payables accept a new reference.
func (r *Repository) SetExternalReference(ctx context.Context, kind models.EntityKind, id, orderID string) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET external_reference = $2,
	updated_at = now()
WHERE id = $1
	AND payment_status = $3;`, table.name), strings.TrimSpace(id), strings.TrimSpace(orderID), models.PaymentStatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPayableNotFound
	}
	return nil
}

// MarkPaid applies the pending -> paid transition and its side effects as one
// transaction: bookings and teori bookings get confirmed, package purchases
// issue their credit ledger rows. The row is locked and the status re-checked
// inside the same transaction; that check is the sole idempotency and
// concurrency guard, so a replayed webhook or a stale confirm token finds the
// entity already paid and returns transitioned=false without side effects.
func (r *Repository) MarkPaid(ctx context.Context, kind models.EntityKind, id string) (models.Payable, bool, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return models.Payable{}, false, err
	}

	var out models.Payable
	transitioned := false
	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		payable, err := lockPayable(ctx, tx, table, kind, id)
		if err != nil {
			return err
		}
		if payable.PaymentStatus != models.PaymentStatusPending {
			out = payable
			return nil
		}

		if table.statusCol != "" {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET payment_status = $2,
	%s = $3,
	updated_at = now()
WHERE id = $1;`, table.name, table.statusCol), payable.ID, models.PaymentStatusPaid, models.BookingStatusConfirmed); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET payment_status = $2,
	updated_at = now()
WHERE id = $1;`, table.name), payable.ID, models.PaymentStatusPaid); err != nil {
				return err
			}
		}

		if kind == models.KindPackage {
			if err := r.issuePackageCreditsTx(ctx, tx, payable.ID, payable.UserID); err != nil {
				return err
			}
		}

		payable.PaymentStatus = models.PaymentStatusPaid
		payable.UpdatedAt = time.Now().UTC()
		out = payable
		transitioned = true
		return nil
	})
	if err != nil {
		return models.Payable{}, false, err
	}
	return out, transitioned, nil
}

// MarkCancelled applies pending -> cancelled for an explicit admin deny.
// Terminal entities are left untouched and reported via transitioned=false.
func (r *Repository) MarkCancelled(ctx context.Context, kind models.EntityKind, id, reason string) (models.Payable, bool, error) {
	if strings.TrimSpace(reason) == "" {
		reason = CancelReasonAdminDenied
	}
	return r.cancelPayable(ctx, kind, id, models.PaymentStatusCancelled, reason)
}

// MarkExpired applies pending -> expired on behalf of the sweeper, recording
// a reason that distinguishes automatic expiry from a manual deny.
func (r *Repository) MarkExpired(ctx context.Context, kind models.EntityKind, id string) (models.Payable, bool, error) {
	return r.cancelPayable(ctx, kind, id, models.PaymentStatusExpired, CancelReasonAutoExpired)
}

func (r *Repository) cancelPayable(ctx context.Context, kind models.EntityKind, id, targetStatus, reason string) (models.Payable, bool, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return models.Payable{}, false, err
	}

	var out models.Payable
	transitioned := false
	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		payable, err := lockPayable(ctx, tx, table, kind, id)
		if err != nil {
			return err
		}
		if payable.PaymentStatus != models.PaymentStatusPending {
			out = payable
			return nil
		}

		// Cancelling a booking releases its slot reservation via the
		// booking status; package purchases have nothing to release.
		if table.statusCol != "" {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET payment_status = $2,
	%s = $3,
	cancel_reason = $4,
	updated_at = now()
WHERE id = $1;`, table.name, table.statusCol), payable.ID, targetStatus, models.BookingStatusCancelled, reason); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
UPDATE %s
SET payment_status = $2,
	cancel_reason = $3,
	updated_at = now()
WHERE id = $1;`, table.name), payable.ID, targetStatus, reason); err != nil {
				return err
			}
		}

		payable.PaymentStatus = targetStatus
		payable.UpdatedAt = time.Now().UTC()
		out = payable
		transitioned = true
		return nil
	})
	if err != nil {
		return models.Payable{}, false, err
	}
	return out, transitioned, nil
}

// ListStalePending returns ids of pending payables created before the cutoff,
// oldest first. The sweeper transitions each one in its own transaction so a
// failure on one entity never blocks the rest of the batch.
func (r *Repository) ListStalePending(ctx context.Context, kind models.EntityKind, cutoff time.Time, limit int) ([]string, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
SELECT id
FROM %s
WHERE payment_status = $1
	AND created_at < $2
ORDER BY created_at ASC
LIMIT $3;`, table.name), models.PaymentStatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func lockPayable(ctx context.Context, tx pgx.Tx, table payableTable, kind models.EntityKind, id string) (models.Payable, error) {
	row := tx.QueryRow(ctx, fmt.Sprintf(`
SELECT id, user_id, %s, currency, payment_method, payment_status, external_reference, created_at, updated_at
FROM %s
WHERE id = $1
FOR UPDATE;`, table.amountCol, table.name), strings.TrimSpace(id))
	return scanPayable(row, kind)
}

func scanPayable(row pgx.Row, kind models.EntityKind) (models.Payable, error) {
	var out models.Payable
	var amount decimal.Decimal
	var externalRef sql.NullString
	if err := row.Scan(
		&out.ID,
		&out.UserID,
		&amount,
		&out.Currency,
		&out.PaymentMethod,
		&out.PaymentStatus,
		&externalRef,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, ErrPayableNotFound
		}
		return out, err
	}
	out.Kind = kind
	out.Amount = amount
	if externalRef.Valid && strings.TrimSpace(externalRef.String) != "" {
		ref := strings.TrimSpace(externalRef.String)
		out.ExternalReference = &ref
	}
	return out, nil
}
