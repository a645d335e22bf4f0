// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package main

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/notify"
)

// pubsubComponents bundles the transport the order-update pipeline runs on.
// With NATS disabled both ends are one in-process gochannel; with NATS
// enabled the publisher and subscriber connect to the configured (or
// embedded) server so updates fan out across instances.
type pubsubComponents struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	// embedded is non-nil only in embedded-server mode. Its shutdown is
	// owned by the supervision tree, not by Close.
	embedded *notify.EmbeddedNATS

	// shared marks the gochannel transport, where publisher and
	// subscriber are the same value and must be closed once.
	shared bool
}

// initPubSub builds the pub/sub transport from config.
func initPubSub(cfg *config.NATSConfig) (*pubsubComponents, error) {
	if !cfg.Enabled {
		logging.Info().Msg("NATS disabled, using in-process pub/sub")
		ps := notify.NewGoChannelPubSub()
		return &pubsubComponents{publisher: ps, subscriber: ps, shared: true}, nil
	}

	components := &pubsubComponents{}

	url := cfg.URL
	if cfg.EmbeddedServer {
		embedded, err := notify.StartEmbeddedNATS(cfg)
		if err != nil {
			return nil, err
		}
		components.embedded = embedded
		url = embedded.ClientURL()
	}

	publisher, err := notify.NewNATSPublisher(url)
	if err != nil {
		return nil, err
	}
	components.publisher = publisher

	subscriber, err := notify.NewNATSSubscriber(url)
	if err != nil {
		if cerr := publisher.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing NATS publisher")
		}
		return nil, err
	}
	components.subscriber = subscriber

	logging.Info().Str("url", url).Bool("embedded", cfg.EmbeddedServer).Msg("NATS pub/sub initialized")
	return components, nil
}

// Close closes the publisher and subscriber connections. The gochannel
// transport serves as both ends, so it is closed once.
func (p *pubsubComponents) Close() {
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing update publisher")
		}
	}
	if p.subscriber != nil && !p.shared {
		if err := p.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing update subscriber")
		}
	}
}
