// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// blockingService runs until its context is cancelled and counts starts.
type blockingService struct {
	name   string
	starts atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func TestNewTree(t *testing.T) {
	t.Run("creates hierarchical tree", func(t *testing.T) {
		tree, err := NewTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("NewTree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies defaults for zero config", func(t *testing.T) {
		tree, err := NewTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("NewTree: %v", err)
		}

		if tree.config.FailureThreshold != 5.0 {
			t.Errorf("FailureThreshold = %f, want 5.0", tree.config.FailureThreshold)
		}
		if tree.config.FailureDecay != 30.0 {
			t.Errorf("FailureDecay = %f, want 30.0", tree.config.FailureDecay)
		}
		if tree.config.FailureBackoff != 15*time.Second {
			t.Errorf("FailureBackoff = %v, want 15s", tree.config.FailureBackoff)
		}
		if tree.config.ShutdownTimeout != 10*time.Second {
			t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
		}
	})
}

func TestTreeLifecycle(t *testing.T) {
	t.Run("starts and stops services in both layers", func(t *testing.T) {
		tree, err := NewTree(testLogger(), TreeConfig{
			FailureBackoff:  100 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})
		if err != nil {
			t.Fatalf("NewTree: %v", err)
		}

		messaging := &blockingService{name: "mock-messaging"}
		api := &blockingService{name: "mock-api"}
		tree.AddMessagingService(messaging)
		tree.AddAPIService(api)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := tree.ServeBackground(ctx)

		waitFor(t, time.Second, func() bool {
			return messaging.starts.Load() > 0 && api.starts.Load() > 0
		})

		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected supervisor error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("supervisor did not stop after cancellation")
		}
	})

	t.Run("restarts a crashing service", func(t *testing.T) {
		tree, err := NewTree(testLogger(), TreeConfig{
			FailureThreshold: 100,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("NewTree: %v", err)
		}

		crasher := &crashingService{}
		tree.AddMessagingService(crasher)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := tree.ServeBackground(ctx)

		waitFor(t, 2*time.Second, func() bool {
			return crasher.starts.Load() >= 2
		})

		cancel()
		<-errCh
	})
}

// crashingService fails immediately on each start.
type crashingService struct {
	starts atomic.Int32
}

func (s *crashingService) Serve(context.Context) error {
	s.starts.Add(1)
	return errors.New("boom")
}

func (s *crashingService) String() string { return "crasher" }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
