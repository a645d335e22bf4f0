// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package main

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bazaarhq/settlement/internal/config"
)

func TestInitPubSubDisabled(t *testing.T) {
	pubsub, err := initPubSub(&config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("initPubSub: %v", err)
	}
	defer pubsub.Close()

	if !pubsub.shared {
		t.Error("disabled NATS should yield the shared gochannel transport")
	}
	if pubsub.embedded != nil {
		t.Error("disabled NATS should not start an embedded server")
	}

	// The transport must round-trip a message in process.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	messages, err := pubsub.subscriber.Subscribe(ctx, "pubsub.test")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sent := message.NewMessage(watermill.NewUUID(), []byte(`{"ok":true}`))
	if err := pubsub.publisher.Publish("pubsub.test", sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-messages:
		if string(got.Payload) != `{"ok":true}` {
			t.Errorf("payload = %s", got.Payload)
		}
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered before timeout")
	}
}

func TestPubSubCloseIsIdempotentPerEnd(t *testing.T) {
	pubsub, err := initPubSub(&config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("initPubSub: %v", err)
	}
	// Shared transport: Close must not close the same gochannel twice.
	pubsub.Close()
}
