// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
)

// UpdateStatus applies a privileged fulfillment transition. Role
// enforcement happens at the API layer; the service enforces only the
// transition table.
//
// Moving to cancelled through this path runs the full cancellation logic
// so a paid order's metrics are reversed exactly as in a customer cancel.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, req *models.StatusUpdateRequest) (*models.Order, error) {
	if !models.ValidFulfillmentStatus(req.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	if req.Status == models.FulfillmentCancelled {
		return s.Cancel(ctx, "", orderID)
	}

	var updated *models.Order
	err := s.retryOnConflict(ctx, orderID, func(order *models.Order) error {
		if !models.CanTransition(order.Fulfillment.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s",
				ErrInvalidTransition, order.Fulfillment.Status, req.Status)
		}

		code := req.EventCode
		if code == "" {
			code = strings.ToUpper(string(req.Status))
		}
		description := req.EventDescription
		if description == "" {
			description = "Order status changed to " + string(req.Status)
		}

		now := s.now()
		order.Fulfillment.Status = req.Status
		order.UpdatedAt = now
		order.AppendEvent(code, description, now)

		if err := s.store.UpdateOrder(ctx, order); err != nil {
			return err
		}

		logging.Info().
			Str("order_id", order.ID).
			Str("status", string(req.Status)).
			Str("event_code", code).
			Msg("Fulfillment status updated")

		s.notifyUpdate(ctx, order)
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reconcile rebuilds every product's sold count and revenue from the full
// order history. Administrative repair path for counters that drifted
// outside the transactional flows.
func (s *Service) Reconcile(ctx context.Context) (*models.ReconcileResponse, error) {
	summary, err := s.store.RecomputeMetrics(ctx)
	if err != nil {
		return nil, err
	}

	metrics.MetricsReconciliations.WithLabelValues("recompute").Inc()
	logging.Info().
		Int("orders_processed", summary.OrdersProcessed).
		Int("products_updated", summary.ProductsUpdated).
		Int64("total_sold", summary.TotalSold).
		Int64("total_revenue", summary.TotalRevenue).
		Msg("Product metrics recomputed")

	return summary, nil
}
