// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package models

import (
	"testing"
	"time"
)

func TestComputeAmounts(t *testing.T) {
	tests := []struct {
		name     string
		items    []OrderItem
		subtotal int64
		tax      int64
		shipping int64
		total    int64
	}{
		{
			name:     "single line below free shipping",
			items:    []OrderItem{{ProductID: "p1", Price: 1000, Qty: 3}},
			subtotal: 3000,
			tax:      540,
			shipping: 199,
			total:    3739,
		},
		{
			name:     "above free shipping threshold",
			items:    []OrderItem{{ProductID: "p1", Price: 6000, Qty: 1}},
			subtotal: 6000,
			tax:      1080,
			shipping: 0,
			total:    7080,
		},
		{
			name:     "exactly at threshold still pays shipping",
			items:    []OrderItem{{ProductID: "p1", Price: 2500, Qty: 2}},
			subtotal: 5000,
			tax:      900,
			shipping: 199,
			total:    6099,
		},
		{
			name: "multiple lines",
			items: []OrderItem{
				{ProductID: "p1", Price: 100, Qty: 2},
				{ProductID: "p2", Price: 350, Qty: 1},
			},
			subtotal: 550,
			tax:      99,
			shipping: 199,
			total:    848,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ComputeAmounts(tt.items)
			if a.Subtotal != tt.subtotal {
				t.Errorf("subtotal = %d, want %d", a.Subtotal, tt.subtotal)
			}
			if a.Tax != tt.tax {
				t.Errorf("tax = %d, want %d", a.Tax, tt.tax)
			}
			if a.Shipping != tt.shipping {
				t.Errorf("shipping = %d, want %d", a.Shipping, tt.shipping)
			}
			if a.Total != tt.total {
				t.Errorf("total = %d, want %d", a.Total, tt.total)
			}
			if !a.Consistent() {
				t.Error("amounts violate total invariant")
			}
		})
	}
}

func TestFulfillmentTransitions(t *testing.T) {
	allowed := []struct{ from, to FulfillmentStatus }{
		{FulfillmentCreated, FulfillmentProcessing},
		{FulfillmentCreated, FulfillmentCancelled},
		{FulfillmentCreated, FulfillmentExpired},
		{FulfillmentProcessing, FulfillmentShipped},
		{FulfillmentProcessing, FulfillmentCancelled},
		{FulfillmentShipped, FulfillmentDelivered},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("transition %s -> %s should be allowed", tr.from, tr.to)
		}
	}

	rejected := []struct{ from, to FulfillmentStatus }{
		{FulfillmentShipped, FulfillmentCancelled},
		{FulfillmentDelivered, FulfillmentCancelled},
		{FulfillmentDelivered, FulfillmentProcessing},
		{FulfillmentCancelled, FulfillmentProcessing},
		{FulfillmentCancelled, FulfillmentCancelled},
		{FulfillmentExpired, FulfillmentProcessing},
		{FulfillmentProcessing, FulfillmentCreated},
		{FulfillmentShipped, FulfillmentProcessing},
		{FulfillmentCreated, FulfillmentDelivered},
	}
	for _, tr := range rejected {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("transition %s -> %s should be rejected", tr.from, tr.to)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentFailed, PaymentPending, false},
		{PaymentRefunded, PaymentPaid, false},
	}
	for _, tt := range tests {
		if got := CanPaymentTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanPaymentTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAppendEvent(t *testing.T) {
	o := &Order{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o.AppendEvent(EventOrderCreated, "Order created", at)
	o.AppendEvent(EventPaymentConfirmed, "Payment received and confirmed", at.Add(time.Minute))

	if len(o.Fulfillment.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(o.Fulfillment.Events))
	}
	if o.Fulfillment.Events[0].Code != EventOrderCreated {
		t.Errorf("first event = %s, want %s", o.Fulfillment.Events[0].Code, EventOrderCreated)
	}
	if !o.Fulfillment.Events[1].At.After(o.Fulfillment.Events[0].At) {
		t.Error("events should preserve append order")
	}
}
