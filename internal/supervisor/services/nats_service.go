// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package services

import (
	"context"
	"time"
)

// NATSServer matches *notify.EmbeddedNATS's lifecycle. The server is
// started before the tree; supervision only ties its shutdown to the tree's.
type NATSServer interface {
	Shutdown(ctx context.Context) error
}

// NATSServerService holds the embedded NATS server open for the lifetime of
// the supervision tree and shuts it down when the tree stops.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService creates a new embedded-NATS service wrapper.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "embedded-nats",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *NATSServerService) String() string {
	return s.name
}
