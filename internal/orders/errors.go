// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package orders

import (
	"errors"
	"fmt"
)

// Sentinel errors of the settlement service. The API layer maps these to
// HTTP status codes and error codes; nothing in this package knows about
// HTTP.
var (
	// ErrEmptyCart rejects a checkout without line items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNotOrderOwner rejects access to another customer's order.
	ErrNotOrderOwner = errors.New("order belongs to another customer")

	// ErrVerificationFailed rejects a payment whose signature does not
	// authenticate, or whose gateway identifiers do not match the order.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrInvalidStatus rejects an unknown fulfillment status value.
	ErrInvalidStatus = errors.New("unknown fulfillment status")

	// ErrInvalidTransition rejects a fulfillment move the transition
	// table does not allow, including cancelling a shipped or delivered
	// order and cancelling twice.
	ErrInvalidTransition = errors.New("fulfillment transition not allowed")
)

// GatewayError wraps a failure of the external payment gateway so the API
// layer can map it to a 500 without losing the cause.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
