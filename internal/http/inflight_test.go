package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// TestInFlightTracker_ConcurrentUpdates verifies the count stays exact under
// concurrent request starts and completions.
func TestInFlightTracker_ConcurrentUpdates(t *testing.T) {
	tracker := &InFlightTracker{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment()
		}()
	}
	wg.Wait()
	if got := tracker.Count(); got != 50 {
		t.Fatalf("Count() = %d, want 50", got)
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Decrement()
		}()
	}
	wg.Wait()
	if got := tracker.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestInFlightTracker_WaitForZero(t *testing.T) {
	tests := []struct {
		name          string
		checkInterval time.Duration
	}{
		{"explicit interval", 5 * time.Millisecond},
		{"default interval", 0},
		{"negative interval", -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &InFlightTracker{}
			tracker.Increment()

			done := make(chan error, 1)
			go func() {
				done <- tracker.WaitForZero(context.Background(), tt.checkInterval)
			}()

			time.Sleep(10 * time.Millisecond)
			tracker.Decrement()

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("WaitForZero() error = %v", err)
				}
			case <-time.After(time.Second):
				t.Fatal("WaitForZero did not return after count reached zero")
			}
		})
	}
}

func TestInFlightTracker_WaitForZero_Deadline(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.WaitForZero(ctx, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForZero() error = %v, want DeadlineExceeded", err)
	}
}

// TestMetricsMiddleware_HoldsInFlightAcrossSlowHandler verifies that a request
// counts as in flight until its handler returns, so shutdown waits for it.
func TestMetricsMiddleware_HoldsInFlightAcrossSlowHandler(t *testing.T) {
	before := InFlightCount()
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	served := make(chan struct{})
	go func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/weather", nil))
		close(served)
	}()
	<-entered

	if got := InFlightCount(); got != before+1 {
		t.Errorf("InFlightCount() during request = %d, want %d", got, before+1)
	}

	waited := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		waited <- WaitForInFlight(ctx, time.Millisecond)
	}()
	select {
	case <-waited:
		t.Fatal("WaitForInFlight returned while the handler was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-served
	if err := <-waited; err != nil {
		t.Errorf("WaitForInFlight() error = %v", err)
	}
	if got := InFlightCount(); got != before {
		t.Errorf("InFlightCount() after request = %d, want %d", got, before)
	}
}
