// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
	"github.com/bazaarhq/settlement/internal/store"
)

// Sweeper expires orders whose payment intent was never completed. It runs
// under the supervision tree and scans on a fixed interval.
//
// Expiry is terminal and metrics-neutral: only never-paid orders in their
// initial state qualify, so there is nothing to reverse. A sweep losing a
// version race to a concurrent payment simply skips that order; the next
// scan sees the paid state and leaves it alone.
type Sweeper struct {
	service  *Service
	ttl      time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper expiring pending orders older than ttl,
// scanning every interval.
func NewSweeper(service *Service, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, ttl: ttl, interval: interval}
}

// String names the service in supervisor logs.
func (sw *Sweeper) String() string { return "order-sweeper" }

// Serve runs the sweep loop until the context is cancelled. Implements
// suture.Service.
func (sw *Sweeper) Serve(ctx context.Context) error {
	logging.Info().
		Dur("ttl", sw.ttl).
		Dur("interval", sw.interval).
		Msg("Order expiry sweeper started")

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Order expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := sw.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Order expiry sweep failed")
			}
		}
	}
}

// sweep expires every stale pending order. Exported through Serve only;
// tests drive it directly.
func (sw *Sweeper) sweep(ctx context.Context) error {
	cutoff := sw.service.now().Add(-sw.ttl)
	stale, err := sw.service.store.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	var expired int
	for _, order := range stale {
		if err := sw.expire(ctx, order.ID); err != nil {
			if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, ErrInvalidTransition) {
				// Lost the race to a payment or cancellation.
				continue
			}
			return err
		}
		expired++
	}

	if expired > 0 {
		logging.Info().Int("expired", expired).Time("cutoff", cutoff).Msg("Expired stale pending orders")
	}
	return nil
}

func (sw *Sweeper) expire(ctx context.Context, orderID string) error {
	return sw.service.retryOnConflict(ctx, orderID, func(order *models.Order) error {
		// Re-check under the fresh read: the order may have been paid or
		// cancelled since the scan.
		if order.Payment.Status != models.PaymentPending ||
			!models.CanTransition(order.Fulfillment.Status, models.FulfillmentExpired) {
			return ErrInvalidTransition
		}

		now := sw.service.now()
		order.Fulfillment.Status = models.FulfillmentExpired
		order.UpdatedAt = now
		order.AppendEvent(models.EventOrderExpired, "Order expired: payment was never completed", now)

		if err := sw.service.store.UpdateOrder(ctx, order); err != nil {
			return err
		}

		metrics.OrdersExpired.Inc()
		sw.service.notifyUpdate(ctx, order)
		return nil
	})
}
