package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind identifies which domain table a payable row lives in.
type EntityKind string

const (
	KindBooking EntityKind = "booking"
	KindPackage EntityKind = "package"
	KindTeori   EntityKind = "teori"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusPaid      = "PAID"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCancelled = "CANCELLED"
	PaymentStatusExpired   = "EXPIRED"
)

const (
	PaymentMethodQliro   = "QLIRO"
	PaymentMethodSwish   = "SWISH"
	PaymentMethodCredits = "CREDITS"
)

const (
	BookingStatusOnHold    = "ON_HOLD"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

// IsTerminalPaymentStatus reports whether no further automated transition applies.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// Payable is the slice of a booking, package purchase or teori booking that
// the reconciliation core reads and transitions. The owning flow creates and
// deletes the row; this core only moves payment_status forward.
type Payable struct {
	Kind              EntityKind      `json:"kind"`
	ID                string          `json:"id"`
	UserID            int64           `json:"userId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentStatus     string          `json:"paymentStatus"`
	ExternalReference *string         `json:"externalReference,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// AmountMinor returns the amount in the gateway's minor units (ore for SEK).
func (p Payable) AmountMinor() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Customer carries the optional contact fields forwarded to the gateway.
// Absence of any field must not fail checkout creation.
type Customer struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// PackageContent is one purchasable line of a lesson package. Paying for the
// package issues one credit ledger row per content line.
type PackageContent struct {
	ID           string  `json:"id"`
	PackageID    string  `json:"packageId"`
	LessonTypeID *string `json:"lessonTypeId,omitempty"`
	SessionID    *string `json:"sessionId,omitempty"`
	Credits      int     `json:"credits"`
}

// CreditLedgerEntry is an append-only grant of lesson credits.
type CreditLedgerEntry struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"userId"`
	LessonTypeID     *string   `json:"lessonTypeId,omitempty"`
	SessionID        *string   `json:"sessionId,omitempty"`
	CreditsTotal     int       `json:"creditsTotal"`
	CreditsRemaining int       `json:"creditsRemaining"`
	PackageContentID *string   `json:"packageContentId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PaymentAudit is the raw provider exchange kept for operator follow-up.
type PaymentAudit struct {
	ID              string                 `json:"id"`
	Reference       string                 `json:"reference"`
	Provider        string                 `json:"provider"`
	ProviderOrderID string                 `json:"providerOrderId,omitempty"`
	AmountMinor     int64                  `json:"amountMinor"`
	Status          string                 `json:"status"`
	RawResponseJSON map[string]interface{} `json:"rawResponseJson,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}
