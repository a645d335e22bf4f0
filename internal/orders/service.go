// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package orders implements the settlement workflows: checkout, payment
// verification, fulfillment transitions, cancellation, expiry and metrics
// reconciliation.
//
// All persistence goes through the store's versioned writes. Operations
// that race on the same order (a verification against a cancellation, a
// sweeper pass against a payment) are retried from a fresh read when the
// store reports a version conflict, so each outcome is decided against the
// latest state.
//
// Realtime notifications are strictly best effort: a publish failure is
// logged and the settlement operation still succeeds.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/bazaarhq/settlement/internal/gateway"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
	"github.com/bazaarhq/settlement/internal/notify"
	"github.com/bazaarhq/settlement/internal/store"
)

// casRetries bounds re-reads when a versioned write loses a race.
const casRetries = 3

// Service coordinates the order settlement workflows.
type Service struct {
	store   *store.Store
	gateway gateway.Client
	emitter notify.Emitter

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates the settlement service.
func NewService(st *store.Store, gw gateway.Client, emitter notify.Emitter) *Service {
	if emitter == nil {
		emitter = notify.NopEmitter{}
	}
	return &Service{
		store:   st,
		gateway: gw,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder returns one order. Customers see only their own orders; admin
// reads pass an empty customerID to skip the ownership check.
func (s *Service) GetOrder(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && order.CustomerID != customerID {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// ListOrders returns the customer's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, customerID string) ([]*models.Order, error) {
	return s.store.ListOrdersByCustomer(ctx, customerID)
}

// notifyUpdate publishes the order's fulfillment status as a realtime
// update, logging but never propagating failures.
func (s *Service) notifyUpdate(ctx context.Context, order *models.Order) {
	s.notifyStatus(ctx, order, string(order.Fulfillment.Status))
}

// notifyStatus publishes a realtime update with an explicit status. The
// payment confirmation path reports "paid" rather than the fulfillment
// state it implies.
func (s *Service) notifyStatus(ctx context.Context, order *models.Order, status string) {
	err := s.emitter.PublishOrderUpdate(ctx, models.OrderUpdate{
		OrderID:    order.ID,
		Status:     status,
		CustomerID: order.CustomerID,
	})
	if err != nil {
		logging.Warn().Err(err).Str("order_id", order.ID).Msg("Order update publish failed")
	}
}

// retryOnConflict runs fn, re-invoking it after a fresh read when the
// store rejects a stale version. fn receives the current attempt's order.
func (s *Service) retryOnConflict(ctx context.Context, orderID string, fn func(*models.Order) error) error {
	var err error
	for attempt := 0; attempt < casRetries; attempt++ {
		var order *models.Order
		order, err = s.store.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		err = fn(order)
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		logging.Debug().Str("order_id", orderID).Int("attempt", attempt+1).Msg("Retrying after version conflict")
	}
	return err
}
