// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
)

//nolint:gochecknoinits // silence log output during tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func testGatewayOrder() *models.Order {
	items := []models.OrderItem{{ProductID: "prod-1", Price: 1000, Qty: 3}}
	return &models.Order{
		ID:      "ord-1",
		Items:   items,
		Amounts: models.ComputeAmounts(items),
	}
}

func TestRESTClientCreateIntent(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotBody gatewayOrderRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(gatewayOrderResponse{
			ID: "gw_123", Amount: gotBody.Amount, Currency: gotBody.Currency, Status: "created",
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewRESTClient(&config.GatewayConfig{
		BaseURL:   srv.URL,
		KeyID:     "key_abc",
		KeySecret: "secret_xyz",
		Currency:  "INR",
		Timeout:   5 * time.Second,
	})

	order := testGatewayOrder()
	intent, err := client.CreateIntent(context.Background(), order)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	if gotAuthUser != "key_abc" || gotAuthPass != "secret_xyz" {
		t.Errorf("basic auth = %q/%q, want key_abc/secret_xyz", gotAuthUser, gotAuthPass)
	}
	wantAmount := order.Amounts.Total * 100
	if gotBody.Amount != wantAmount {
		t.Errorf("request amount = %d, want %d", gotBody.Amount, wantAmount)
	}
	if gotBody.Receipt != "ord-1" {
		t.Errorf("request receipt = %q, want ord-1", gotBody.Receipt)
	}
	if intent.GatewayOrderID != "gw_123" {
		t.Errorf("GatewayOrderID = %q, want gw_123", intent.GatewayOrderID)
	}
	if intent.KeyID != "key_abc" {
		t.Errorf("KeyID = %q, want key_abc", intent.KeyID)
	}
	if intent.DemoMode {
		t.Error("DemoMode = true for live client")
	}
}

func TestRESTClientCreateIntentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"auth failed"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewRESTClient(&config.GatewayConfig{
		BaseURL: srv.URL, KeyID: "k", KeySecret: "s", Currency: "INR", Timeout: 5 * time.Second,
	})

	if _, err := client.CreateIntent(context.Background(), testGatewayOrder()); err == nil {
		t.Error("CreateIntent succeeded against failing gateway, want error")
	}
}

func TestVerifySignature(t *testing.T) {
	client := NewRESTClient(&config.GatewayConfig{
		KeySecret: "test_secret", Currency: "INR", Timeout: time.Second,
	})

	valid := signPayload("test_secret", "gw_order_1", "gw_pay_1")

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid signature", "gw_order_1", "gw_pay_1", valid, true},
		{"wrong payment id", "gw_order_1", "gw_pay_2", valid, false},
		{"wrong order id", "gw_order_2", "gw_pay_1", valid, false},
		{"empty signature", "gw_order_1", "gw_pay_1", "", false},
		{"truncated signature", "gw_order_1", "gw_pay_1", valid[:16], false},
		{"wrong secret", "gw_order_1", "gw_pay_1", signPayload("other_secret", "gw_order_1", "gw_pay_1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.VerifySignature(tt.orderID, tt.paymentID, tt.signature); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignPayloadDelimiterBindsFields(t *testing.T) {
	// "a|bc" and "ab|c" must not collide.
	if signPayload("s", "a", "bc") == signPayload("s", "ab", "c") {
		t.Error("signature collides across field boundary")
	}
}

func TestDemoClient(t *testing.T) {
	client := NewDemoClient(&config.GatewayConfig{Currency: "INR", DemoMode: true})

	order := testGatewayOrder()
	intent, err := client.CreateIntent(context.Background(), order)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.GatewayOrderID != "demo_ord-1" {
		t.Errorf("GatewayOrderID = %q, want demo_ord-1", intent.GatewayOrderID)
	}
	if intent.KeyID != demoKeyID {
		t.Errorf("KeyID = %q, want %q", intent.KeyID, demoKeyID)
	}
	if !intent.DemoMode {
		t.Error("DemoMode = false for demo client")
	}
	if intent.Amount != order.Amounts.Total*100 {
		t.Errorf("Amount = %d, want %d", intent.Amount, order.Amounts.Total*100)
	}
	if !client.VerifySignature("anything", "goes", "here") {
		t.Error("demo VerifySignature rejected, want accept")
	}
}

func TestNewSelectsMode(t *testing.T) {
	if c := New(&config.GatewayConfig{DemoMode: true, Currency: "INR"}); !c.Demo() {
		t.Error("New(demo) returned live client")
	}
	live := New(&config.GatewayConfig{
		BaseURL: "https://gw.example.com", KeyID: "k", KeySecret: "s",
		Currency: "INR", Timeout: time.Second,
	})
	if live.Demo() {
		t.Error("New(live) returned demo client")
	}
}
