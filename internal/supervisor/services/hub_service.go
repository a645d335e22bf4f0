// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package services

import (
	"context"
)

// ContextRunner matches components whose run loop already follows the
// suture pattern: block until the context is cancelled, then return.
// Satisfied by *websocket.Hub (RunWithContext) and *notify.Relay (Run)
// through small adapters below.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService wraps the WebSocket hub as a supervised service. The
// hub's RunWithContext already implements the required shape, so this
// wrapper only supplies a name for logging.
type WebSocketHubService struct {
	hub  ContextRunner
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextRunner) *WebSocketHubService {
	return &WebSocketHubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (w *WebSocketHubService) String() string {
	return w.name
}
