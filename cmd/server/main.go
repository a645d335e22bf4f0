// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package main is the entry point for the settlement server.
//
// The server owns the order settlement core of the BazaarHQ platform:
// checkout-amount computation, payment-intent creation against the external
// gateway, payment-signature verification, the fulfillment state machine,
// and the reconciliation of per-product sales metrics.
//
// # Application Architecture
//
// Components initialize in the following order:
//
//  1. Configuration: Koanf v2 with layered sources (defaults < config.yaml < env)
//  2. Store: BadgerDB holding orders, products and the reconciliation ledger
//  3. Payment gateway client: REST client behind a circuit breaker, or the
//     demo client when GATEWAY_DEMO_MODE=true
//  4. Pub/sub transport: in-process gochannel, or NATS (external or embedded)
//  5. WebSocket hub and order-update relay
//  6. Authentication: JWT, or none for development
//  7. HTTP server: chi router with the REST API, /ws and /metrics
//
// Everything long-running is placed under a suture supervision tree with a
// messaging layer (hub, relay, sweeper, embedded NATS) and an API layer
// (HTTP server), so a messaging crash never takes down the API.
//
// # Configuration
//
// Minimal live setup:
//
//	export GATEWAY_KEY_ID=rzp_live_xxxx
//	export GATEWAY_KEY_SECRET=xxxx
//	export JWT_SECRET=$(openssl rand -base64 32)
//	./settlement
//
// Demo mode (no gateway credentials, signature checks skipped):
//
//	export GATEWAY_DEMO_MODE=true
//	export AUTH_MODE=none
//	./settlement
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting connections and drains in-flight requests (10s timeout), the
// messaging layer stops, and the store is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bazaarhq/settlement/internal/api"
	"github.com/bazaarhq/settlement/internal/auth"
	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/gateway"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/notify"
	"github.com/bazaarhq/settlement/internal/orders"
	"github.com/bazaarhq/settlement/internal/store"
	"github.com/bazaarhq/settlement/internal/supervisor"
	"github.com/bazaarhq/settlement/internal/supervisor/services"
	ws "github.com/bazaarhq/settlement/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config (and with it the log level) never loaded.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("gateway_demo_mode", cfg.Gateway.DemoMode).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Configuration loaded")

	st, err := store.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store opened")

	gatewayClient := gateway.New(&cfg.Gateway)
	if cfg.Gateway.DemoMode {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  Payment gateway is in DEMO MODE (GATEWAY_DEMO_MODE=true)")
		logging.Warn().Msg("  No external calls are made and signature verification")
		logging.Warn().Msg("  is SKIPPED. Never use demo mode with real customers!")
		logging.Warn().Msg("============================================================")
	}

	pubsub, err := initPubSub(&cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize pub/sub transport")
	}
	defer pubsub.Close()

	hub := ws.NewHub()
	emitter := notify.NewEmitter(pubsub.publisher)
	relay := notify.NewRelay(pubsub.subscriber, hub)

	service := orders.NewService(st, gatewayClient, emitter)
	sweeper := orders.NewSweeper(service, cfg.Orders.PendingTTL, cfg.Orders.SweepInterval)

	var jwtManager *auth.JWTManager
	switch cfg.Security.AuthMode {
	case "jwt":
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  Every request is trusted for the customer id it claims.")
		logging.Warn().Msg("  Use only for local development and CI.")
		logging.Warn().Msg("============================================================")
	}

	authMiddleware := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)

	handler := api.NewHandler(service, hub)
	router := api.NewRouter(handler, authMiddleware, &cfg.Security)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRelayService(relay))
	tree.AddMessagingService(sweeper)
	if pubsub.embedded != nil {
		tree.AddMessagingService(services.NewNATSServerService(pubsub.embedded, 10*time.Second))
	}
	logging.Info().Msg("Messaging services added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context cancelled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Settlement server stopped gracefully")
}
