// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package services

import (
	"context"
)

// UpdateRelay matches *notify.Relay's run loop.
type UpdateRelay interface {
	Run(ctx context.Context) error
}

// RelayService wraps the order-update relay as a supervised service. If the
// relay's subscription drops, suture restarts it and the relay resubscribes;
// updates published in the gap are lost, which is within the best-effort
// delivery contract.
type RelayService struct {
	relay UpdateRelay
	name  string
}

// NewRelayService creates a new relay service wrapper.
func NewRelayService(relay UpdateRelay) *RelayService {
	return &RelayService{relay: relay, name: "order-update-relay"}
}

// Serve implements suture.Service.
func (r *RelayService) Serve(ctx context.Context) error {
	return r.relay.Run(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (r *RelayService) String() string {
	return r.name
}
