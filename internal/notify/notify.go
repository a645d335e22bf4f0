// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package notify carries realtime order updates from the settlement core to
// connected customers.
//
// Updates flow through a Watermill pub/sub: the service layer publishes an
// OrderUpdate after each state change, and the Relay consumes the topic and
// pushes the frame into the owning customer's WebSocket room. The pub/sub is
// an in-process gochannel by default and NATS when configured, so a
// multi-instance deployment can fan updates out across nodes.
//
// Delivery is best effort. Publish failures are logged and counted but never
// fail the settlement operation that triggered them.
package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
	"github.com/bazaarhq/settlement/internal/models"
)

// TopicOrderUpdates is the pub/sub topic order updates travel on.
const TopicOrderUpdates = "orders.update"

// customerIDMetadataKey carries the routing key in message metadata; the
// payload itself never exposes the customer id.
const customerIDMetadataKey = "customer_id"

// Emitter publishes order updates toward connected customers.
type Emitter interface {
	// PublishOrderUpdate publishes one update. An error means the update
	// was dropped; callers treat that as non-fatal.
	PublishOrderUpdate(ctx context.Context, update models.OrderUpdate) error
}

// PubSubEmitter publishes order updates on a Watermill publisher.
type PubSubEmitter struct {
	publisher message.Publisher
}

// NewEmitter creates an emitter over the given publisher.
func NewEmitter(publisher message.Publisher) *PubSubEmitter {
	return &PubSubEmitter{publisher: publisher}
}

// PublishOrderUpdate marshals the update and publishes it. The customer id
// rides in message metadata so the relay can route without parsing.
func (e *PubSubEmitter) PublishOrderUpdate(_ context.Context, update models.OrderUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(customerIDMetadataKey, update.CustomerID)

	if err := e.publisher.Publish(TopicOrderUpdates, msg); err != nil {
		metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return err
	}
	metrics.NotificationsPublished.WithLabelValues("ok").Inc()
	return nil
}

// NopEmitter drops every update. Used by tests and tooling that has no
// realtime consumers.
type NopEmitter struct{}

// PublishOrderUpdate discards the update.
func (NopEmitter) PublishOrderUpdate(context.Context, models.OrderUpdate) error { return nil }

// NewGoChannelPubSub creates the in-process pub/sub used when NATS is not
// configured. The returned value serves as both publisher and subscriber.
func NewGoChannelPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		// A slow or absent consumer must never block a publish.
		OutputChannelBuffer: 256,
	}, NewWatermillLogger())
}

// NewWatermillLogger bridges Watermill's logging into zerolog.
func NewWatermillLogger() watermill.LoggerAdapter {
	return watermillLogger{}
}

type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), msg, fields)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return watermillLogger{fields: merged}
}

func (l watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Str("component", "watermill").Msg(msg)
}
