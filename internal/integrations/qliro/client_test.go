package qliro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestCreateOrderParsing verifies create order parsing behavior.
func TestCreateOrderParsing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/merchantapi/orders" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Qliro key:") {
			t.Fatalf("unexpected auth header: %s", auth)
		}
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if raw["MerchantReference"] != "booking_abc123" {
			t.Fatalf("unexpected MerchantReference: %#v", raw["MerchantReference"])
		}
		if raw["Currency"] != "SEK" {
			t.Fatalf("unexpected Currency: %#v", raw["Currency"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"OrderId":                "Q1",
			"MerchantReference":      "booking_abc123",
			"PaymentLink":            "https://pay.example/Q1",
			"CustomerCheckoutStatus": "InProcess",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"}, srv.Client(), nil)
	amount := int64(50000)
	order, raw, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		MerchantReference: "booking_abc123",
		Amount:            &amount,
		Currency:          "SEK",
		Description:       "Driving lesson",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderID != "Q1" || order.CheckoutURL != "https://pay.example/Q1" {
		t.Fatalf("unexpected order: %#v", order)
	}
	if !strings.Contains(string(raw), "PaymentLink") {
		t.Fatalf("raw body should contain PaymentLink: %s", string(raw))
	}
}

// TestCreateOrderAPIError verifies create order a p i error behavior.
func TestCreateOrderAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":"INVALID_AMOUNT"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"}, srv.Client(), nil)
	_, _, err := client.CreateOrder(context.Background(), CreateOrderRequest{MerchantReference: "booking_abc123"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
}

// TestUnconfiguredClientFailsFast verifies unconfigured client fails fast behavior.
func TestUnconfiguredClientFailsFast(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{}, nil, nil)
	if _, _, err := client.GetOrder(context.Background(), "Q1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// TestVerifyPushSignature verifies verify push signature behavior.
func TestVerifyPushSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"OrderId":"Q1","MerchantReference":"booking_abc123","Status":"Paid"}`)
	sig := SignPayload("push-secret", body)

	if !VerifyPushSignature("push-secret", body, sig) {
		t.Fatalf("valid signature should verify")
	}
	if VerifyPushSignature("push-secret", body, "") {
		t.Fatalf("empty signature should not verify")
	}
	if VerifyPushSignature("push-secret", []byte(`{"OrderId":"Q2"}`), sig) {
		t.Fatalf("signature over different body should not verify")
	}
	if VerifyPushSignature("other-secret", body, sig) {
		t.Fatalf("signature with wrong secret should not verify")
	}
}

// TestParsePushEvent verifies parse push event behavior.
func TestParsePushEvent(t *testing.T) {
	t.Parallel()

	event, err := ParsePushEvent([]byte(`{"OrderId":"Q1","MerchantReference":"booking_abc123","Status":"Paid"}`))
	if err != nil {
		t.Fatalf("parse push event: %v", err)
	}
	if event.OrderID != "Q1" || event.MerchantReference != "booking_abc123" || event.Status != "Paid" {
		t.Fatalf("unexpected event: %#v", event)
	}

	if _, err := ParsePushEvent([]byte(`{"Status":"Paid"}`)); err == nil {
		t.Fatalf("missing OrderId should fail")
	}
	if _, err := ParsePushEvent([]byte(`not json`)); err == nil {
		t.Fatalf("malformed body should fail")
	}
}

// TestIsPaidStatus verifies is paid status behavior.
func TestIsPaidStatus(t *testing.T) {
	t.Parallel()
	if !IsPaidStatus("Paid") || !IsPaidStatus("Completed") {
		t.Fatalf("Paid and Completed should be paid statuses")
	}
	if IsPaidStatus("InProcess") || IsPaidStatus("") {
		t.Fatalf("intermediate statuses should not be paid")
	}
	if !IsTerminalStatus("Refused") || IsTerminalStatus("OnHold") {
		t.Fatalf("unexpected terminal classification")
	}
}
