// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
)

// EventOrderUpdate is the event name carried in every realtime frame.
const EventOrderUpdate = "order:update"

// Frame is the envelope delivered to WebSocket clients.
type Frame struct {
	Event string             `json:"event"`
	Data  models.OrderUpdate `json:"data"`
}

// RoomSender delivers a payload to every client in a room. Implemented by
// the WebSocket hub.
type RoomSender interface {
	SendToRoom(room string, payload []byte)
}

// Relay consumes the order-update topic and pushes each update into the
// owning customer's room. A malformed message is logged and dropped; the
// relay never stops on bad input.
type Relay struct {
	subscriber message.Subscriber
	sender     RoomSender
}

// NewRelay creates a relay from subscriber to room sender.
func NewRelay(subscriber message.Subscriber, sender RoomSender) *Relay {
	return &Relay{subscriber: subscriber, sender: sender}
}

// Run consumes updates until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, TopicOrderUpdates)
	if err != nil {
		return err
	}

	logging.Info().Str("topic", TopicOrderUpdates).Msg("Order update relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver(msg)
			msg.Ack()
		}
	}
}

func (r *Relay) deliver(msg *message.Message) {
	customerID := msg.Metadata.Get(customerIDMetadataKey)
	if customerID == "" {
		logging.Warn().Str("msg_id", msg.UUID).Msg("Order update without customer id dropped")
		return
	}

	var update models.OrderUpdate
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		logging.Warn().Err(err).Str("msg_id", msg.UUID).Msg("Malformed order update dropped")
		return
	}

	frame, err := json.Marshal(Frame{Event: EventOrderUpdate, Data: update})
	if err != nil {
		logging.Error().Err(err).Msg("Marshal order update frame")
		return
	}

	r.sender.SendToRoom(customerID, frame)

	logging.Debug().
		Str("order_id", update.OrderID).
		Str("status", update.Status).
		Msg("Order update relayed")
}
