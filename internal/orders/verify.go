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

// VerifyPayment authenticates a gateway callback and settles the payment.
//
// The flow is idempotent: verifying an already-paid order succeeds without
// touching the metrics again. A signature mismatch marks the payment failed
// and is reported as a verification error; the order itself stays
// retrievable. A callback arriving after the order expired is refused even
// when the signature is authentic.
func (s *Service) VerifyPayment(ctx context.Context, customerID string, req *models.VerifyRequest) (*models.VerifyResponse, error) {
	var resp *models.VerifyResponse
	err := s.retryOnConflict(ctx, req.OrderID, func(order *models.Order) error {
		if customerID != "" && order.CustomerID != customerID {
			return ErrNotOrderOwner
		}

		// Replay of a settled payment: acknowledge and change nothing.
		if order.Payment.Status == models.PaymentPaid {
			metrics.PaymentsVerified.WithLabelValues("duplicate").Inc()
			resp = &models.VerifyResponse{OrderID: order.ID}
			return nil
		}

		// A callback that lands after the sweeper expired the order has
		// nothing left to settle: the expired state is terminal, so
		// confirming here would charge the customer with no fulfillment
		// or reversal path. The gateway retries against the conflict
		// response and eventually refunds on its side.
		if order.Fulfillment.Status == models.FulfillmentExpired {
			metrics.PaymentsVerified.WithLabelValues("expired").Inc()
			return fmt.Errorf("%w: order expired", ErrInvalidTransition)
		}

		if !models.CanPaymentTransition(order.Payment.Status, models.PaymentPaid) {
			metrics.PaymentsVerified.WithLabelValues("error").Inc()
			return fmt.Errorf("%w: payment is %s", ErrVerificationFailed, order.Payment.Status)
		}

		// The callback must reference the intent this order was created
		// with; a different gateway order id never authenticates.
		if order.Payment.GatewayOrderID == "" || req.GatewayOrderID != order.Payment.GatewayOrderID {
			metrics.PaymentsVerified.WithLabelValues("error").Inc()
			return fmt.Errorf("%w: gateway order mismatch", ErrVerificationFailed)
		}

		if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
			return s.rejectSignature(ctx, order)
		}

		now := s.now()
		order.Payment.Status = models.PaymentPaid
		order.Payment.GatewayPaymentID = req.GatewayPaymentID
		order.Payment.Signature = req.Signature
		order.Payment.PaidAt = &now
		if models.CanTransition(order.Fulfillment.Status, models.FulfillmentProcessing) {
			order.Fulfillment.Status = models.FulfillmentProcessing
		}
		order.UpdatedAt = now
		order.AppendEvent(models.EventPaymentConfirmed, "Payment confirmed", now)

		if err := s.store.ConfirmPayment(ctx, order); err != nil {
			return err
		}

		metrics.PaymentsVerified.WithLabelValues("paid").Inc()
		metrics.MetricsReconciliations.WithLabelValues("increment").Inc()

		logging.Info().
			Str("order_id", order.ID).
			Str("gateway_payment_id", req.GatewayPaymentID).
			Int64("total", order.Amounts.Total).
			Msg("Payment confirmed")

		s.notifyStatus(ctx, order, string(models.PaymentPaid))
		resp = &models.VerifyResponse{OrderID: order.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// rejectSignature records the failed attempt on the order and returns the
// verification error.
func (s *Service) rejectSignature(ctx context.Context, order *models.Order) error {
	metrics.PaymentsVerified.WithLabelValues("signature_mismatch").Inc()

	order.Payment.Status = models.PaymentFailed
	order.UpdatedAt = s.now()
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		// The conflict path retries the whole verification; anything else
		// still reads as a verification failure to the caller.
		logging.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist payment failure")
		return err
	}

	logging.Warn().Str("order_id", order.ID).Msg("Payment signature rejected")
	return fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
}
