// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/auth"
	"github.com/bazaarhq/settlement/internal/models"
	"github.com/bazaarhq/settlement/internal/validation"
)

// maxBodyBytes caps request bodies; order payloads are small.
const maxBodyBytes = 1 << 20

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		NewResponseWriter(w).BadRequest("Invalid JSON body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w).ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// customerID returns the authenticated customer, or writes a 401.
func customerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		NewResponseWriter(w).Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return "", false
	}
	return claims.CustomerID, true
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Checkout(r.Context(), custID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Created(resp)
}

// VerifyCheckout handles POST /api/v1/checkout/verify.
func (h *Handler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var req models.VerifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.VerifyPayment(r.Context(), custID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(resp)
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), custID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(order)
}

// ListOrders handles GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListOrders(r.Context(), custID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(list)
}

// UpdateOrderStatus handles PUT /api/v1/orders/{id}/status (admin only).
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(order)
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	order, err := h.service.Cancel(r.Context(), custID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(order)
}

// Reconcile handles POST /api/v1/admin/reconcile (admin only).
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Reconcile(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	NewResponseWriter(w).Success(summary)
}
