package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

var (
	ErrPayableNotFound = errors.New("payable not found")
	ErrUnknownKind     = errors.New("unknown payable kind")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// payableTable describes where one entity kind keeps its payment fields.
// Each kind owns its table; the reconciliation core never joins across them.
type payableTable struct {
	name      string
	amountCol string
	statusCol string
}

func tableForKind(kind models.EntityKind) (payableTable, error) {
	switch kind {
	case models.KindBooking:
		return payableTable{name: "bookings", amountCol: "total_price", statusCol: "status"}, nil
	case models.KindPackage:
		return payableTable{name: "package_purchases", amountCol: "price_paid"}, nil
	case models.KindTeori:
		return payableTable{name: "teori_bookings", amountCol: "price", statusCol: "status"}, nil
	default:
		return payableTable{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}
