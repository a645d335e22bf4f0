// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package gateway

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
)

// BreakerClient wraps the live REST client with a circuit breaker so a
// degraded gateway fails fast instead of tying up checkout requests.
//
// The breaker uses real time for its interval and timeout calculations;
// tests exercise the wrapped client directly.
type BreakerClient struct {
	client *RESTClient
	cb     *gobreaker.CircuitBreaker[*Intent]
	name   string
}

// NewBreakerClient creates a live gateway client behind a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests,
// allows 3 probe requests in half-open state, and waits 2 minutes before
// probing an open circuit.
func NewBreakerClient(cfg *config.GatewayConfig) *BreakerClient {
	client := NewRESTClient(cfg)
	cbName := "payment-gateway"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit to payment gateway")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// CreateIntent registers the order with the gateway under breaker
// protection.
func (b *BreakerClient) CreateIntent(ctx context.Context, order *models.Order) (*Intent, error) {
	intent, err := b.cb.Execute(func() (*Intent, error) {
		return b.client.CreateIntent(ctx, order)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Gateway request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return intent, nil
}

// VerifySignature is pure computation and bypasses the breaker.
func (b *BreakerClient) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return b.client.VerifySignature(gatewayOrderID, gatewayPaymentID, signature)
}

// Demo reports false; this client uses live credentials.
func (b *BreakerClient) Demo() bool { return false }

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
