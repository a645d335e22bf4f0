// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
)

// Checkout computes the order amounts, persists a pending order and
// registers a payment intent with the gateway.
//
// The order is written before the gateway call: if the gateway fails, the
// pending order survives and the client may retry verification later or
// let the TTL sweeper expire it. The returned GatewayError tells the API
// layer to answer 500 while the order stays retrievable.
func (s *Service) Checkout(ctx context.Context, customerID string, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	order := &models.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Items:           req.Items,
		Amounts:         models.ComputeAmounts(req.Items),
		ShippingAddress: req.ShippingAddress,
		Payment: models.Payment{
			Method: "gateway",
			Status: models.PaymentPending,
		},
		Fulfillment: models.Fulfillment{
			Status: models.FulfillmentCreated,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.AppendEvent(models.EventOrderCreated, "Order placed", now)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, order)
	if err != nil {
		logging.Error().Err(err).Str("order_id", order.ID).Msg("Gateway intent creation failed")
		return nil, &GatewayError{Err: err}
	}

	err = s.retryOnConflict(ctx, order.ID, func(o *models.Order) error {
		o.Payment.GatewayOrderID = intent.GatewayOrderID
		o.UpdatedAt = s.now()
		return s.store.UpdateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	mode := "live"
	if intent.DemoMode {
		mode = "demo"
	}
	metrics.OrdersCreated.WithLabelValues(mode).Inc()

	logging.Info().
		Str("order_id", order.ID).
		Str("customer_id", customerID).
		Str("gateway_order_id", intent.GatewayOrderID).
		Int64("total", order.Amounts.Total).
		Msg("Order created")

	return &models.CheckoutResponse{
		OrderID:        order.ID,
		GatewayOrderID: intent.GatewayOrderID,
		KeyID:          intent.KeyID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		DemoMode:       intent.DemoMode,
	}, nil
}
