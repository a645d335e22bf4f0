// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package notify

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/models"
)

//nolint:gochecknoinits // silence log output during tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// recordingSender captures room deliveries for assertions.
type recordingSender struct {
	mu        sync.Mutex
	delivered map[string][][]byte
	signal    chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		delivered: make(map[string][][]byte),
		signal:    make(chan struct{}, 16),
	}
}

func (r *recordingSender) SendToRoom(room string, payload []byte) {
	r.mu.Lock()
	r.delivered[room] = append(r.delivered[room], payload)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *recordingSender) frames(room string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.delivered[room]...)
}

func TestEmitterRelayRoundTrip(t *testing.T) {
	pubsub := NewGoChannelPubSub()
	t.Cleanup(func() {
		if err := pubsub.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	sender := newRecordingSender()
	relay := NewRelay(pubsub, sender)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// Give the relay a moment to establish its subscription; gochannel
	// drops messages published before any subscriber exists.
	time.Sleep(50 * time.Millisecond)

	emitter := NewEmitter(pubsub)
	update := models.OrderUpdate{OrderID: "ord-1", Status: "paid", CustomerID: "cust-1"}
	if err := emitter.PublishOrderUpdate(ctx, update); err != nil {
		t.Fatalf("PublishOrderUpdate: %v", err)
	}

	select {
	case <-sender.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("update never reached the room sender")
	}

	frames := sender.frames("cust-1")
	if len(frames) != 1 {
		t.Fatalf("got %d frames for cust-1, want 1", len(frames))
	}

	var frame Frame
	if err := json.Unmarshal(frames[0], &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Event != EventOrderUpdate {
		t.Errorf("frame event = %q, want %q", frame.Event, EventOrderUpdate)
	}
	if frame.Data.OrderID != "ord-1" || frame.Data.Status != "paid" {
		t.Errorf("frame data = %+v, want ord-1/paid", frame.Data)
	}
	if frame.Data.CustomerID != "" {
		t.Error("customer id leaked into the frame payload")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop on context cancellation")
	}
}

func TestRelayDropsUpdateWithoutCustomer(t *testing.T) {
	pubsub := NewGoChannelPubSub()
	t.Cleanup(func() {
		if err := pubsub.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	sender := newRecordingSender()
	relay := NewRelay(pubsub, sender)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = relay.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	emitter := NewEmitter(pubsub)
	// No CustomerID: routing metadata is empty, frame must be dropped.
	if err := emitter.PublishOrderUpdate(ctx, models.OrderUpdate{OrderID: "ord-1", Status: "paid"}); err != nil {
		t.Fatalf("PublishOrderUpdate: %v", err)
	}
	// And one routable update behind it proves the relay kept running.
	if err := emitter.PublishOrderUpdate(ctx, models.OrderUpdate{
		OrderID: "ord-2", Status: "cancelled", CustomerID: "cust-2",
	}); err != nil {
		t.Fatalf("PublishOrderUpdate: %v", err)
	}

	select {
	case <-sender.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("routable update never delivered")
	}

	if frames := sender.frames(""); len(frames) != 0 {
		t.Errorf("got %d frames for empty room, want 0", len(frames))
	}
	if frames := sender.frames("cust-2"); len(frames) != 1 {
		t.Errorf("got %d frames for cust-2, want 1", len(frames))
	}
}

func TestNopEmitter(t *testing.T) {
	if err := (NopEmitter{}).PublishOrderUpdate(context.Background(), models.OrderUpdate{}); err != nil {
		t.Errorf("NopEmitter returned %v, want nil", err)
	}
}
