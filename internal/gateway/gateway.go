// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package gateway talks to the external payment gateway.
//
// Two implementations exist behind the Client interface: a REST client for
// live credentials, wrapped in a circuit breaker, and a demo client that
// synthesizes gateway identifiers locally so the full checkout flow works
// without credentials. Signature verification is pure computation and never
// touches the network.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/models"
)

// Intent is the gateway-side payment intent created for an order. Amount is
// in the gateway's minor currency unit (paise for INR).
type Intent struct {
	GatewayOrderID string `json:"gateway_order_id"`
	KeyID          string `json:"key_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	DemoMode       bool   `json:"demo_mode"`
}

// Client creates payment intents and verifies payment signatures.
type Client interface {
	// CreateIntent registers the order with the gateway and returns the
	// intent the client-side checkout needs.
	CreateIntent(ctx context.Context, order *models.Order) (*Intent, error)

	// VerifySignature reports whether the signature authenticates the
	// gateway order/payment id pair.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool

	// Demo reports whether this client runs without live credentials.
	Demo() bool
}

// New returns the client matching the configured mode.
func New(cfg *config.GatewayConfig) Client {
	if cfg.DemoMode {
		return NewDemoClient(cfg)
	}
	return NewBreakerClient(cfg)
}

// minorUnits converts a major-unit amount to the gateway's minor unit.
func minorUnits(amount int64) int64 {
	return amount * 100
}

// signPayload computes the hex HMAC-SHA256 of "<orderID>|<paymentID>" under
// the gateway key secret. This is the signature scheme the gateway uses for
// its checkout callback.
func signPayload(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyPayload compares an expected signature in constant time.
func verifyPayload(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := signPayload(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
