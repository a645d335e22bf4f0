// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package notify

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
)

// EmbeddedNATS wraps an in-process NATS server with lifecycle management.
// Single-instance deployments get cross-process fan-out without an external
// broker; multi-instance deployments point NATS.URL at a shared server
// instead.
type EmbeddedNATS struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedNATS creates and starts an embedded NATS server.
func StartEmbeddedNATS(cfg *config.NATSConfig) (*EmbeddedNATS, error) {
	opts := &server.Options{
		ServerName: "settlement-events",
		Host:       "127.0.0.1",
		Port:       4222,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return &EmbeddedNATS{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedNATS) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server, waiting for in-flight messages unless the
// context is already cancelled.
func (s *EmbeddedNATS) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

// natsConnectOptions holds the reconnection behavior shared by publisher
// and subscriber connections.
func natsConnectOptions() []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Error().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
}

// NewNATSPublisher creates a Watermill publisher over core NATS. Order
// updates are ephemeral by design, so JetStream persistence is not used.
func NewNATSPublisher(url string) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsConnectOptions(),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return pub, nil
}

// NewNATSSubscriber creates a Watermill subscriber over core NATS.
func NewNATSSubscriber(url string) (message.Subscriber, error) {
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:            url,
		NatsOptions:    natsConnectOptions(),
		Unmarshaler:    &wmNats.NATSMarshaler{},
		JetStream:      wmNats.JetStreamConfig{Disabled: true},
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
	}, NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return sub, nil
}
