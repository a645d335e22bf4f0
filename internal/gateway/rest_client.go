// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
)

// RESTClient is the live gateway client. It speaks the gateway's order API
// with basic auth over the configured key pair.
type RESTClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
}

// NewRESTClient creates a live gateway client from configuration.
func NewRESTClient(cfg *config.GatewayConfig) *RESTClient {
	return &RESTClient{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		currency:  cfg.Currency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// gatewayOrderRequest is the body of the gateway's order-creation call.
type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// gatewayOrderResponse is the subset of the gateway's response we consume.
type gatewayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateIntent registers the order with the gateway.
func (c *RESTClient) CreateIntent(ctx context.Context, order *models.Order) (*Intent, error) {
	amount := minorUnits(order.Amounts.Total)
	body, err := json.Marshal(gatewayOrderRequest{
		Amount:   amount,
		Currency: c.currency,
		Receipt:  order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gateway order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway order creation: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close gateway response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read keeps a misbehaving gateway from flooding the log.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, snippet)
	}

	var gwResp gatewayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if gwResp.ID == "" {
		return nil, fmt.Errorf("gateway response missing order id")
	}

	logging.Debug().
		Str("order_id", order.ID).
		Str("gateway_order_id", gwResp.ID).
		Int64("amount", amount).
		Msg("Gateway intent created")

	return &Intent{
		GatewayOrderID: gwResp.ID,
		KeyID:          c.keyID,
		Amount:         amount,
		Currency:       c.currency,
		DemoMode:       false,
	}, nil
}

// VerifySignature checks the checkout callback signature against the key
// secret.
func (c *RESTClient) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return verifyPayload(c.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

// Demo reports false; this client uses live credentials.
func (c *RESTClient) Demo() bool { return false }
