// Package checkout resolves a payable entity to a live hosted checkout,
// reusing the cached gateway order when it is still open and creating a
// fresh one when it is missing, terminal or unreachable.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/payments"
)

var (
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrCheckoutCreation     = errors.New("checkout creation failed")
)

// Gateway is the slice of the Qliro client the manager needs.
type Gateway interface {
	Configured() bool
	CreateOrder(ctx context.Context, in qliro.CreateOrderRequest) (qliro.Order, []byte, error)
	GetOrder(ctx context.Context, orderID string) (qliro.Order, []byte, error)
}

// OrderCache is the merchant-reference -> order-id mapping. Implementations
// are best-effort; a miss and an error look the same to the manager.
type OrderCache interface {
	GetOrderID(ctx context.Context, merchantRef string) (string, bool)
	PutOrderID(ctx context.Context, merchantRef, orderID string)
	DeleteOrderID(ctx context.Context, merchantRef string)
}

// ReferenceStore persists which gateway order a payable was last checked
// out under.
type ReferenceStore interface {
	SetExternalReference(ctx context.Context, kind models.EntityKind, id, orderID string) error
}

// Session is one resolved checkout handed back to the client.
type Session struct {
	CheckoutID        string `json:"checkoutId"`
	CheckoutURL       string `json:"checkoutUrl"`
	MerchantReference string `json:"merchantReference"`
	IsExisting        bool   `json:"isExisting"`
}

// URLs are the merchant callback endpoints registered on every new order.
type URLs struct {
	ReturnURL string
	PushURL   string
}

type Manager struct {
	gateway Gateway
	cache   OrderCache
	store   ReferenceStore
	urls    URLs
	logger  *slog.Logger
}

func NewManager(gateway Gateway, cache OrderCache, store ReferenceStore, urls URLs, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &Manager{gateway: gateway, cache: cache, store: store, urls: urls, logger: logger}
}

// noopCache stands in when no redis instance is configured.
type noopCache struct{}

func (noopCache) GetOrderID(context.Context, string) (string, bool) { return "", false }
func (noopCache) PutOrderID(context.Context, string, string)       {}
func (noopCache) DeleteOrderID(context.Context, string)            {}

// GetOrCreate returns a usable checkout for the payable. The cached order is
// probed against the gateway first; a still-open order is reused as-is, a
// terminal or unreachable one is discarded and a fresh order created. No
// retries: a gateway failure surfaces immediately as ErrCheckoutCreation.
func (m *Manager) GetOrCreate(ctx context.Context, payable models.Payable, customer models.Customer) (Session, error) {
	if m.gateway == nil || !m.gateway.Configured() {
		return Session{}, ErrGatewayNotConfigured
	}

	merchantRef := payments.EncodeReference(payable.Kind, payable.ID)

	if orderID, ok := m.cache.GetOrderID(ctx, merchantRef); ok {
		order, _, err := m.gateway.GetOrder(ctx, orderID)
		switch {
		case err != nil:
			m.logger.Warn("checkout_probe_failed", "reference", merchantRef, "order_id", orderID, "error", err)
			m.cache.DeleteOrderID(ctx, merchantRef)
		case qliro.IsTerminalStatus(order.Status) || strings.TrimSpace(order.CheckoutURL) == "":
			m.logger.Info("checkout_cache_stale", "reference", merchantRef, "order_id", orderID, "status", order.Status)
			m.cache.DeleteOrderID(ctx, merchantRef)
		default:
			return Session{
				CheckoutID:        order.OrderID,
				CheckoutURL:       order.CheckoutURL,
				MerchantReference: merchantRef,
				IsExisting:        true,
			}, nil
		}
	}

	amount := payable.AmountMinor()
	currency := strings.TrimSpace(payable.Currency)
	if currency == "" {
		currency = "SEK"
	}
	order, _, err := m.gateway.CreateOrder(ctx, qliro.CreateOrderRequest{
		MerchantReference:       merchantRef,
		Amount:                  &amount,
		Currency:                currency,
		Description:             descriptionForKind(payable.Kind),
		MerchantConfirmationURL: m.urls.ReturnURL,
		MerchantPushURL:         m.urls.PushURL,
		Customer:                customerInfo(customer),
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCheckoutCreation, err)
	}

	// Losing the reference or the cache entry degrades reuse, never
	// correctness: the webhook matches by merchant reference alone.
	if m.store != nil {
		if err := m.store.SetExternalReference(ctx, payable.Kind, payable.ID, order.OrderID); err != nil {
			m.logger.Warn("checkout_reference_store", "reference", merchantRef, "order_id", order.OrderID, "error", err)
		}
	}
	m.cache.PutOrderID(ctx, merchantRef, order.OrderID)

	m.logger.Info("checkout_created", "reference", merchantRef, "order_id", order.OrderID)
	return Session{
		CheckoutID:        order.OrderID,
		CheckoutURL:       order.CheckoutURL,
		MerchantReference: merchantRef,
		IsExisting:        false,
	}, nil
}

func descriptionForKind(kind models.EntityKind) string {
	switch kind {
	case models.KindPackage:
		return "Lesson package"
	case models.KindTeori:
		return "Theory session"
	default:
		return "Driving lesson"
	}
}

func customerInfo(c models.Customer) *qliro.CustomerInfo {
	if c.Email == "" && c.Phone == "" && c.FirstName == "" && c.LastName == "" {
		return nil
	}
	return &qliro.CustomerInfo{
		Email:        c.Email,
		MobileNumber: c.Phone,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
	}
}
