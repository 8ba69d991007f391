package qliro

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("qliro gateway is not configured")

// Config carries the single resolved environment (sandbox or production is
// decided by whoever fills these in, never switched at runtime).
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qliro api status %d: %s", e.StatusCode, e.Body)
}

// CustomerInfo mirrors the optional contact block of a create-order call.
// Every field may be empty without failing the request.
type CustomerInfo struct {
	Email        string `json:"Email,omitempty"`
	MobileNumber string `json:"MobileNumber,omitempty"`
	FirstName    string `json:"FirstName,omitempty"`
	LastName     string `json:"LastName,omitempty"`
}

type CreateOrderRequest struct {
	MerchantReference       string        `json:"MerchantReference"`
	Amount                  *int64        `json:"TotalAmount,omitempty"`
	Currency                string        `json:"Currency,omitempty"`
	Description             string        `json:"Description,omitempty"`
	MerchantConfirmationURL string        `json:"MerchantConfirmationUrl,omitempty"`
	MerchantPushURL         string        `json:"MerchantCheckoutStatusPushUrl,omitempty"`
	Customer                *CustomerInfo `json:"Customer,omitempty"`
}

// Order is the gateway's view of one checkout.
type Order struct {
	OrderID           string `json:"OrderId"`
	MerchantReference string `json:"MerchantReference"`
	CheckoutURL       string `json:"PaymentLink"`
	Status            string `json:"CustomerCheckoutStatus"`
	Currency          string `json:"Currency,omitempty"`
	TotalAmount       *int64 `json:"TotalAmount,omitempty"`
}

// PushEvent is the decoded body of a checkout-status push.
type PushEvent struct {
	OrderID           string `json:"OrderId"`
	MerchantReference string `json:"MerchantReference"`
	Status            string `json:"Status"`
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		apiSecret:  strings.TrimSpace(cfg.APISecret),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		logger:     logger,
	}
}

// Configured reports whether the client holds a usable credentials pair.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != "" && c.apiSecret != ""
}

// CreateOrder registers a new checkout and returns the gateway order with
// its hosted checkout URL. The raw response body is returned for auditing.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderRequest) (Order, []byte, error) {
	var out Order
	payload, err := json.Marshal(in)
	if err != nil {
		return out, nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/checkout/merchantapi/orders", payload)
	if err != nil {
		return out, body, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, body, fmt.Errorf("decode create order response: %w", err)
	}
	if strings.TrimSpace(out.OrderID) == "" || strings.TrimSpace(out.CheckoutURL) == "" {
		return out, body, fmt.Errorf("create order response missing OrderId or PaymentLink")
	}
	return out, body, nil
}

// GetOrder fetches the current status snapshot for a gateway order id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, []byte, error) {
	var out Order
	pathPart := fmt.Sprintf("/checkout/merchantapi/orders/%s", url.PathEscape(strings.TrimSpace(orderID)))
	body, err := c.do(ctx, http.MethodGet, pathPart, nil)
	if err != nil {
		return out, body, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, body, fmt.Errorf("decode get order response: %w", err)
	}
	return out, body, nil
}

// IsPaidStatus reports whether a checkout status means money changed hands.
func IsPaidStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "completed":
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether the gateway will never move this order
// again, meaning a cached checkout must be recreated rather than reused.
func IsTerminalStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "completed", "refused", "cancelled", "expired":
		return true
	default:
		return false
	}
}

// SignPayload computes the signature Qliro expects over a raw body:
// hex-encoded HMAC-SHA256 keyed with the API secret.
func SignPayload(secret string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPushSignature checks an inbound push signature against the raw body
// in constant time. An empty header never verifies.
func VerifyPushSignature(secret string, raw []byte, signatureHeader string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	expected := SignPayload(secret, raw)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(sig))) == 1
}

// ParsePushEvent decodes a verified push body. Callers must verify the
// signature first; this function never sees unverified input in handlers.
func ParsePushEvent(raw []byte) (PushEvent, error) {
	var out PushEvent
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode push event: %w", err)
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return out, fmt.Errorf("push event missing OrderId")
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, pathPart string, payload []byte) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + path.Clean("/"+strings.TrimSpace(pathPart))

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Qliro %s:%s", c.apiKey, SignPayload(c.apiSecret, payload)))
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if c.logger != nil {
		c.logger.Debug("qliro_api_response", "method", method, "path", pathPart, "status", resp.StatusCode)
	}
	return body, nil
}
