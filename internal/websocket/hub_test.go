// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bazaarhq/settlement/internal/logging"
)

//nolint:gochecknoinits // silence log output during tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// startHub runs the hub under a cancellable context for the duration of
// the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hub.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop on context cancellation")
		}
	})
	return hub
}

// testClient creates a client without a network connection; the send
// channel stands in for the write pump.
func testClient(hub *Hub, room string) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		room: room,
		hub:  hub,
		send: make(chan []byte, 64),
	}
}

// registerAndWait registers a client and waits until the hub has it.
func registerAndWait(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	before := hub.RoomCount(client.room)
	hub.Register <- client
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomCount(client.room) <= before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.RoomCount(client.room) <= before {
		t.Fatalf("client never registered in room %q", client.room)
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub.rooms == nil || hub.outbound == nil || hub.Register == nil || hub.Unregister == nil {
		t.Fatal("hub channels or room map not initialized")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d on new hub, want 0", hub.ClientCount())
	}
}

func TestSendToRoomReachesOnlyThatRoom(t *testing.T) {
	hub := startHub(t)

	alice := testClient(hub, "cust-alice")
	bob := testClient(hub, "cust-bob")
	registerAndWait(t, hub, alice)
	registerAndWait(t, hub, bob)

	hub.SendToRoom("cust-alice", []byte(`{"event":"order:update"}`))

	select {
	case payload := <-alice.send:
		if string(payload) != `{"event":"order:update"}` {
			t.Errorf("alice received %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alice never received the frame")
	}

	select {
	case payload := <-bob.send:
		t.Errorf("bob received %q, want nothing", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToRoomFansOutWithinRoom(t *testing.T) {
	hub := startHub(t)

	first := testClient(hub, "cust-1")
	second := testClient(hub, "cust-1")
	registerAndWait(t, hub, first)
	registerAndWait(t, hub, second)
	if hub.RoomCount("cust-1") != 2 {
		t.Fatalf("RoomCount = %d, want 2", hub.RoomCount("cust-1"))
	}

	hub.SendToRoom("cust-1", []byte("frame"))

	for _, client := range []*Client{first, second} {
		select {
		case <-client.send:
		case <-time.After(2 * time.Second):
			t.Fatal("client in room missed the frame")
		}
	}
}

func TestSendToUnknownRoomIsNoop(t *testing.T) {
	hub := startHub(t)
	hub.SendToRoom("nobody-home", []byte("frame"))
	time.Sleep(20 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}

func TestUnregisterRemovesClientAndEmptyRoom(t *testing.T) {
	hub := startHub(t)

	client := testClient(hub, "cust-1")
	registerAndWait(t, hub, client)

	hub.Unregister <- client
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d after unregister, want 0", hub.ClientCount())
	}

	// The send channel must be closed so the write pump exits.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel delivered a value, want closed")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed after unregister")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)

	slow := testClient(hub, "cust-1")
	slow.send = make(chan []byte) // unbuffered and never drained
	registerAndWait(t, hub, slow)

	hub.SendToRoom("cust-1", []byte("frame"))

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("slow client still registered, want dropped")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := testClient(hub, "cust-1")
	registerAndWait(t, hub, client)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel delivered a value, want closed")
		}
	default:
		t.Error("send channel not closed at shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", hub.ClientCount())
	}
}
