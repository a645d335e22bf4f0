// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package gateway

import (
	"context"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
)

// demoKeyID is the placeholder key id surfaced to clients in demo mode so
// the checkout UI can distinguish a simulated flow.
const demoKeyID = "demo_key"

// DemoClient synthesizes gateway identifiers locally. The whole checkout
// flow works end to end without credentials or network access; signature
// verification always passes.
type DemoClient struct {
	currency string
}

// NewDemoClient creates a demo gateway client.
func NewDemoClient(cfg *config.GatewayConfig) *DemoClient {
	logging.Warn().Msg("Payment gateway running in demo mode; payments are simulated")
	return &DemoClient{currency: cfg.Currency}
}

// CreateIntent fabricates an intent whose gateway order id is derived from
// the local order id.
func (c *DemoClient) CreateIntent(_ context.Context, order *models.Order) (*Intent, error) {
	return &Intent{
		GatewayOrderID: "demo_" + order.ID,
		KeyID:          demoKeyID,
		Amount:         minorUnits(order.Amounts.Total),
		Currency:       c.currency,
		DemoMode:       true,
	}, nil
}

// VerifySignature always passes in demo mode.
func (c *DemoClient) VerifySignature(_, _, _ string) bool { return true }

// Demo reports true.
func (c *DemoClient) Demo() bool { return true }
