// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/statusphere/internal/config"
)

// mockService implements suture.Service with scripted failures.
type mockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32

	mu       sync.Mutex
	maxFails int32
	err      error
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)

	m.mu.Lock()
	err, maxFails := m.err, m.maxFails
	m.mu.Unlock()

	if maxFails > 0 && m.failCount.Add(1) <= maxFails {
		return errors.New("simulated failure")
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockService) setFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxFails = int32(n)
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
		}
	})
}

func TestTreeConfigFrom(t *testing.T) {
	got := TreeConfigFrom(&config.SupervisorConfig{
		FailureThreshold: 3,
		FailureDecay:     10,
		FailureBackoff:   2 * time.Second,
		ShutdownTimeout:  5 * time.Second,
	})
	want := TreeConfig{FailureThreshold: 3, FailureDecay: 10, FailureBackoff: 2 * time.Second, ShutdownTimeout: 5 * time.Second}
	if got != want {
		t.Errorf("TreeConfigFrom() = %+v, want %+v", got, want)
	}
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("tree starts and stops gracefully", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureBackoff:  100 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		services := []*mockService{newMockService("data"), newMockService("ingest"), newMockService("api")}
		tree.AddDataService(services[0])
		tree.AddIngestService(services[1])
		tree.AddAPIService(services[2])

		ctx, cancel := context.WithCancel(context.Background())
		errCh := tree.ServeBackground(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for _, svc := range services {
			for svc.startCount.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			if svc.startCount.Load() == 0 {
				t.Errorf("%s was not started", svc.name)
			}
		}

		cancel()
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}
	})
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	t.Run("failing service in one layer is restarted", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		failing := newMockService("failing")
		failing.setFailCount(2)
		stable := newMockService("stable")

		tree.AddIngestService(failing)
		tree.AddAPIService(stable)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)
		time.Sleep(200 * time.Millisecond)

		if failing.startCount.Load() < 3 {
			t.Errorf("expected at least 3 starts for failing service, got %d", failing.startCount.Load())
		}
		if stable.startCount.Load() != 1 {
			t.Errorf("stable service started %d times, want 1", stable.startCount.Load())
		}
		<-errCh
	})

	t.Run("ErrDoNotRestart is honoured", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureBackoff:  10 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})

		halted := newMockService("halted")
		halted.setError(suture.ErrDoNotRestart)
		tree.AddIngestService(halted)
		api := newMockService("api")
		tree.AddAPIService(api)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)
		time.Sleep(100 * time.Millisecond)

		if n := halted.startCount.Load(); n != 1 {
			t.Errorf("halted service started %d times, want 1", n)
		}
		if api.startCount.Load() != 1 {
			t.Error("api layer should keep running")
		}
		<-errCh
	})
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()

	if cfg.FailureThreshold != 5.0 {
		t.Errorf("expected FailureThreshold 5.0, got %f", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("expected FailureDecay 30.0, got %f", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("expected FailureBackoff 15s, got %v", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", cfg.ShutdownTimeout)
	}
}
