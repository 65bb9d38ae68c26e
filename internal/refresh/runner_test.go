package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/traffic"
)

type funcFetcher struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context) error
}

func (f *funcFetcher) Name() string { return f.name }

func (f *funcFetcher) Fetch(ctx context.Context) error {
	f.calls.Add(1)
	if f.fn == nil {
		return nil
	}
	return f.fn(ctx)
}

func TestRunner_RecordsStatus(t *testing.T) {
	traffic.Reset()
	status := NewStatusRegistry()
	f := &funcFetcher{name: "crypto"}
	r := NewRunner(f, status, nil)

	if !r.Run(context.Background()) {
		t.Fatal("Run() = false, want true")
	}
	st, ok := status.Get("crypto")
	if !ok {
		t.Fatal("status missing")
	}
	if st.Runs != 1 || st.Failures != 0 || st.LastSuccess == nil || st.LastRun == nil || st.Running {
		t.Errorf("status = %+v", st)
	}

	f.fn = func(ctx context.Context) error { return errors.New("boom") }
	r.Run(context.Background())
	st, _ = status.Get("crypto")
	if st.Runs != 2 || st.Failures != 1 || st.LastError != "boom" {
		t.Errorf("status after failure = %+v", st)
	}
	if failed, total := traffic.FetcherErrorRate("crypto", time.Minute); failed != 1 || total != 2 {
		t.Errorf("FetcherErrorRate() = (%d, %d), want (1, 2)", failed, total)
	}
}

// TestRunner_SkipsOverlappingCycle verifies that a cycle started while the
// previous one is still running returns immediately without fetching.
func TestRunner_SkipsOverlappingCycle(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	f := &funcFetcher{name: "weather", fn: func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}}
	r := NewRunner(f, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Run(context.Background())
	}()
	<-entered

	if r.Run(context.Background()) {
		t.Error("second Run() = true, want skipped")
	}
	close(release)
	wg.Wait()

	if n := f.calls.Load(); n != 1 {
		t.Errorf("Fetch called %d times, want 1", n)
	}
	// entered is already closed; later cycles use the plain fetch.
	f.fn = nil
	if !r.Run(context.Background()) {
		t.Error("Run() after completion = false, want true")
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("Fetch called %d times after completion, want 2", n)
	}
}

func TestCycleResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "success"},
		{"plain", errors.New("x"), "error"},
		{"partial", &CycleError{Failed: 1, Total: 3, Errs: []error{errors.New("x")}}, "partial"},
		{"all failed", &CycleError{Failed: 2, Total: 2, Errs: []error{errors.New("x"), errors.New("y")}}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cycleResult(tt.err); got != tt.want {
				t.Errorf("cycleResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCycleError_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := &CycleError{Fetcher: "news", Failed: 1, Total: 1, Errs: []error{sentinel}}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is(CycleError, sentinel) = false, want true")
	}
}
