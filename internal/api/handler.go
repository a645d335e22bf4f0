// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package api

import (
	"errors"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/bazaarhq/settlement/internal/auth"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/orders"
	"github.com/bazaarhq/settlement/internal/store"
	"github.com/bazaarhq/settlement/internal/websocket"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	service  *orders.Service
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
}

// NewHandler creates the API handler.
func NewHandler(service *orders.Service, hub *websocket.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS middleware; the upgrader
			// accepts whatever made it through.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w).Success(map[string]string{"status": "ok"})
}

// WebSocket handles GET /api/v1/ws: upgrades the connection and joins the
// authenticated customer's room for order:update events.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		NewResponseWriter(w).Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.CustomerID)
	h.hub.Register <- client
	client.Start()
}

// writeServiceError maps service and store errors onto the HTTP error
// taxonomy. Unrecognized errors become a 500 without leaking detail.
func writeServiceError(w http.ResponseWriter, err error) {
	rw := NewResponseWriter(w)

	var gatewayErr *orders.GatewayError
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		rw.NotFound("Order not found")
	case errors.Is(err, orders.ErrNotOrderOwner):
		rw.Forbidden("You do not have access to this order")
	case errors.Is(err, orders.ErrEmptyCart):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "Cart must contain at least one item")
	case errors.Is(err, orders.ErrVerificationFailed):
		rw.Error(http.StatusBadRequest, ErrCodePaymentVerification, "Payment verification failed")
	case errors.Is(err, orders.ErrInvalidStatus):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "Unknown fulfillment status")
	case errors.Is(err, orders.ErrInvalidTransition):
		rw.Error(http.StatusBadRequest, ErrCodeConflict, "Order cannot change to the requested status")
	case errors.As(err, &gatewayErr):
		logging.Error().Err(err).Msg("Payment gateway failure")
		rw.Error(http.StatusInternalServerError, ErrCodeGatewayError, "Payment gateway is unavailable")
	default:
		logging.Error().Err(err).Msg("Unhandled service error")
		rw.InternalError("An internal error occurred")
	}
}
