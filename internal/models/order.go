// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package models defines the persisted aggregates of the settlement core and
// the JSON envelope shared by all API responses.
//
// The Order aggregate is owned exclusively by this service. Item price
// snapshots are immutable after checkout; later catalog price changes never
// reach an existing order. Two fields exist purely for consistency under
// partial failure:
//
//   - Version: monotonically increasing, compared-and-swapped on every write
//     so concurrent mutations of the same order (verify racing cancel) cannot
//     silently interleave.
//   - MetricsApplied: durable marker recording that this order's product
//     deltas have been credited, so the apply/reverse paths stay exactly-once
//     across retries and crashes.
package models

import (
	"math"
	"time"
)

// PaymentStatus is the payment leg of the order lifecycle.
// Transitions are monotonic: pending -> paid|failed, paid -> refunded.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// FulfillmentStatus is the shipping/delivery leg of the order lifecycle.
type FulfillmentStatus string

const (
	FulfillmentCreated    FulfillmentStatus = "created"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"

	// FulfillmentExpired marks a pending order reaped by the TTL sweeper
	// after the gateway intent was never completed. Terminal, metrics-neutral.
	FulfillmentExpired FulfillmentStatus = "expired"
)

// Event codes appended to the fulfillment log.
const (
	EventOrderCreated     = "ORDER_CREATED"
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventOrderCancelled   = "ORDER_CANCELLED"
	EventOrderExpired     = "ORDER_EXPIRED"
)

// fulfillmentTransitions is the allowed transition table. Cancellation is
// reachable from any non-terminal state before shipment; terminal states
// (delivered, cancelled, expired) admit no further transitions.
var fulfillmentTransitions = map[FulfillmentStatus]map[FulfillmentStatus]bool{
	FulfillmentCreated: {
		FulfillmentProcessing: true,
		FulfillmentCancelled:  true,
		FulfillmentExpired:    true,
	},
	FulfillmentProcessing: {
		FulfillmentShipped:   true,
		FulfillmentCancelled: true,
	},
	FulfillmentShipped: {
		FulfillmentDelivered: true,
	},
}

// CanTransition reports whether the fulfillment status may move from one
// state to another.
func CanTransition(from, to FulfillmentStatus) bool {
	return fulfillmentTransitions[from][to]
}

// ValidFulfillmentStatus reports whether s names a known fulfillment state.
func ValidFulfillmentStatus(s FulfillmentStatus) bool {
	switch s {
	case FulfillmentCreated, FulfillmentProcessing, FulfillmentShipped,
		FulfillmentDelivered, FulfillmentCancelled, FulfillmentExpired:
		return true
	}
	return false
}

// OrderItem is an immutable line-item snapshot taken at checkout.
type OrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name"`
	Price     int64  `json:"price" validate:"gte=0"`
	Qty       int64  `json:"qty" validate:"gte=1"`
	Image     string `json:"image,omitempty"`
}

// Amounts holds the computed checkout totals. The invariant
// Total == Subtotal + Tax + Shipping - Discount holds at every read.
type Amounts struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// Consistent reports whether the amounts satisfy the total invariant.
func (a Amounts) Consistent() bool {
	return a.Subtotal >= 0 && a.Tax >= 0 && a.Shipping >= 0 && a.Discount >= 0 &&
		a.Total == a.Subtotal+a.Tax+a.Shipping-a.Discount
}

// Checkout pricing rules: 18% tax rounded to the nearest unit, flat shipping
// fee waived above the free-shipping threshold.
const (
	TaxRate               = 0.18
	FreeShippingThreshold = 5000
	ShippingFee           = 199
)

// ComputeAmounts derives the checkout totals from the item snapshots.
// The computation is fixed and deterministic; discount defaults to zero.
func ComputeAmounts(items []OrderItem) Amounts {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Price * it.Qty
	}

	tax := int64(math.Round(float64(subtotal) * TaxRate))
	var shipping int64 = ShippingFee
	if subtotal > FreeShippingThreshold {
		shipping = 0
	}

	return Amounts{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: 0,
		Total:    subtotal + tax + shipping,
	}
}

// Address is the free-form structured shipping address, set once at creation.
type Address struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// Payment holds the gateway-facing payment state of an order.
type Payment struct {
	Method           string        `json:"method"`
	Status           PaymentStatus `json:"status"`
	GatewayOrderID   string        `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	Signature        string        `json:"signature,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
}

// FulfillmentEvent is an immutable, timestamped log entry in the order's
// shipping lifecycle.
type FulfillmentEvent struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Fulfillment tracks the shipping lifecycle and its append-only event log.
type Fulfillment struct {
	Status FulfillmentStatus  `json:"status"`
	Events []FulfillmentEvent `json:"events"`
}

// Invoice is opaque to the settlement core; carried through untouched.
type Invoice struct {
	Number      string     `json:"number,omitempty"`
	URL         string     `json:"url,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// Order is the root aggregate of the settlement core.
type Order struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`

	Items           []OrderItem `json:"items"`
	Amounts         Amounts     `json:"amounts"`
	ShippingAddress Address     `json:"shipping_address"`

	Payment     Payment     `json:"payment"`
	Fulfillment Fulfillment `json:"fulfillment"`
	Invoice     *Invoice    `json:"invoice,omitempty"`

	// Version is bumped on every persisted write; writes carrying a stale
	// version are rejected by the store.
	Version uint64 `json:"version"`

	// MetricsApplied is true while this order's product deltas are credited.
	MetricsApplied bool `json:"metrics_applied"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendEvent appends a fulfillment event with the given timestamp.
func (o *Order) AppendEvent(code, description string, at time.Time) {
	o.Fulfillment.Events = append(o.Fulfillment.Events, FulfillmentEvent{
		Code:        code,
		Description: description,
		At:          at,
	})
}

// CanPaymentTransition reports whether the payment status may move from one
// state to another. Payment state never reverts to pending.
func CanPaymentTransition(from, to PaymentStatus) bool {
	switch from {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentFailed
	case PaymentPaid:
		return to == PaymentRefunded
	default:
		return false
	}
}
