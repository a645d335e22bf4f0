// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package validation

import (
	"strings"
	"testing"

	"github.com/bazaarhq/settlement/internal/models"
)

func TestValidateCheckoutRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CheckoutRequest
		wantErr bool
		wantIn  string
	}{
		{
			name: "valid",
			req: models.CheckoutRequest{
				Items: []models.OrderItem{{ProductID: "p1", Price: 100, Qty: 1}},
			},
			wantErr: false,
		},
		{
			name:    "empty cart",
			req:     models.CheckoutRequest{},
			wantErr: true,
			wantIn:  "Items",
		},
		{
			name: "zero quantity line item",
			req: models.CheckoutRequest{
				Items: []models.OrderItem{{ProductID: "p1", Price: 100, Qty: 0}},
			},
			wantErr: true,
			wantIn:  "Qty",
		},
		{
			name: "negative price",
			req: models.CheckoutRequest{
				Items: []models.OrderItem{{ProductID: "p1", Price: -5, Qty: 1}},
			},
			wantErr: true,
			wantIn:  "Price",
		},
		{
			name: "missing product id",
			req: models.CheckoutRequest{
				Items: []models.OrderItem{{Price: 100, Qty: 1}},
			},
			wantErr: true,
			wantIn:  "ProductID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantIn)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&models.VerifyRequest{})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message == "" {
		t.Error("empty Message")
	}
	if apiErr.Details == nil {
		t.Error("nil Details for multi-field failure")
	}
}
