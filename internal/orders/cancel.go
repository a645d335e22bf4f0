// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package orders

import (
	"context"
	"fmt"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
)

// Cancel cancels a customer's own order.
//
// The transition table is the single guard: cancellation is allowed from
// created and processing, and rejected once shipped, delivered, already
// cancelled or expired. When the order had been paid, the cancellation and
// the metrics reversal commit together, so a crash can never leave the
// deltas half-reversed.
func (s *Service) Cancel(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	var cancelled *models.Order
	err := s.retryOnConflict(ctx, orderID, func(order *models.Order) error {
		if customerID != "" && order.CustomerID != customerID {
			return ErrNotOrderOwner
		}
		if !models.CanTransition(order.Fulfillment.Status, models.FulfillmentCancelled) {
			return fmt.Errorf("%w: cannot cancel %s order",
				ErrInvalidTransition, order.Fulfillment.Status)
		}

		now := s.now()
		wasPaid := order.Payment.Status == models.PaymentPaid
		order.Fulfillment.Status = models.FulfillmentCancelled
		order.UpdatedAt = now
		order.AppendEvent(models.EventOrderCancelled, "Order cancelled", now)

		reversing := wasPaid && order.MetricsApplied
		if err := s.store.CancelOrder(ctx, order); err != nil {
			return err
		}

		metrics.OrdersCancelled.Inc()
		if reversing {
			metrics.MetricsReconciliations.WithLabelValues("decrement").Inc()
		}

		logging.Info().
			Str("order_id", order.ID).
			Str("customer_id", order.CustomerID).
			Bool("metrics_reversed", reversing).
			Msg("Order cancelled")

		s.notifyUpdate(ctx, order)
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
