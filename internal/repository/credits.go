package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

// issuePackageCreditsTx grants the credits of a paid package purchase inside
// the paying transaction: one ledger row per content line, remaining equal to
// total. Runs only on the pending -> paid edge, so a replay never reaches it.
func (r *Repository) issuePackageCreditsTx(ctx context.Context, tx pgx.Tx, purchaseID string, userID int64) error {
	var packageID string
	if err := tx.QueryRow(ctx, `
SELECT package_id
FROM package_purchases
WHERE id = $1;`, purchaseID).Scan(&packageID); err != nil {
		return fmt.Errorf("load purchase package: %w", err)
	}

	rows, err := tx.Query(ctx, `
SELECT id, package_id, lesson_type_id, session_id, credits
FROM package_contents
WHERE package_id = $1
ORDER BY id;`, packageID)
	if err != nil {
		return fmt.Errorf("load package contents: %w", err)
	}
	contents := make([]models.PackageContent, 0)
	for rows.Next() {
		var c models.PackageContent
		if err := rows.Scan(&c.ID, &c.PackageID, &c.LessonTypeID, &c.SessionID, &c.Credits); err != nil {
			rows.Close()
			return err
		}
		contents = append(contents, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range contents {
		if c.Credits <= 0 {
			continue
		}
		contentID := c.ID
		if _, err := tx.Exec(ctx, `
INSERT INTO user_credits (id, user_id, lesson_type_id, session_id, credits_total, credits_remaining, package_content_id, created_at)
VALUES ($1, $2, $3, $4, $5, $5, $6, now());`,
			uuid.NewString(), userID, c.LessonTypeID, c.SessionID, c.Credits, &contentID); err != nil {
			return fmt.Errorf("issue credits for content %s: %w", c.ID, err)
		}
	}
	return nil
}

// ListUserCredits returns the credit ledger of one user, newest first.
func (r *Repository) ListUserCredits(ctx context.Context, userID int64) ([]models.CreditLedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, lesson_type_id, session_id, credits_total, credits_remaining, package_content_id, created_at
FROM user_credits
WHERE user_id = $1
ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CreditLedgerEntry, 0)
	for rows.Next() {
		var e models.CreditLedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.LessonTypeID, &e.SessionID, &e.CreditsTotal, &e.CreditsRemaining, &e.PackageContentID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetCustomer loads the contact fields forwarded to the gateway for a user.
// A missing user is not an error; checkout proceeds without contact details.
func (r *Repository) GetCustomer(ctx context.Context, userID int64) (models.Customer, error) {
	var out models.Customer
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(email, ''), COALESCE(phone, ''), COALESCE(first_name, ''), COALESCE(last_name, '')
FROM users
WHERE id = $1;`, userID).Scan(&out.Email, &out.Phone, &out.FirstName, &out.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, nil
		}
		return models.Customer{}, err
	}
	return out, nil
}
