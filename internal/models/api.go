// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package models

import "time"

// APIResponse is the envelope shared by every endpoint. Success responses
// carry Data; error responses carry Message and a structured Error with a
// machine-readable code.
type APIResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries structured error details alongside the top-level message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CheckoutRequest is the body of POST /checkout. Item prices are snapshots
// supplied by the cart; the list must be non-empty.
type CheckoutRequest struct {
	Items           []OrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address     `json:"shipping_address"`
}

// CheckoutResponse is returned after a payment intent has been created.
// Amount is in minor currency units, as communicated to the gateway.
type CheckoutResponse struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	KeyID          string `json:"key_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	DemoMode       bool   `json:"demo_mode"`
}

// VerifyRequest is the body of POST /checkout/verify: the gateway callback
// identifiers and signature relayed by the client.
type VerifyRequest struct {
	OrderID          string `json:"order_id" validate:"required"`
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature"`
}

// VerifyResponse acknowledges a confirmed (or already-confirmed) payment.
type VerifyResponse struct {
	OrderID string `json:"order_id"`
}

// StatusUpdateRequest is the body of PUT /orders/{id}/status (privileged).
type StatusUpdateRequest struct {
	Status           FulfillmentStatus `json:"status" validate:"required"`
	EventCode        string            `json:"event_code,omitempty"`
	EventDescription string            `json:"event_description,omitempty"`
}

// ReconcileResponse summarizes an administrative full recompute.
type ReconcileResponse struct {
	OrdersProcessed int   `json:"orders_processed"`
	ProductsUpdated int   `json:"products_updated"`
	TotalSold       int64 `json:"total_sold"`
	TotalRevenue    int64 `json:"total_revenue"`
}

// OrderUpdate is the realtime payload published on the order:update topic
// and pushed to the owning customer's room.
type OrderUpdate struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	CustomerID string `json:"-"`
}
