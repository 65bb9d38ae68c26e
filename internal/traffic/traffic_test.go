package traffic

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestTracker(retention time.Duration) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(retention)
	tr.now = clock.now
	return tr, clock
}

// TestErrorRate_Empty verifies that ErrorRate returns zeros when no cycles
// have been recorded.
func TestErrorRate_Empty(t *testing.T) {
	Reset()
	if failed, total := ErrorRate(time.Minute); failed != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", failed, total)
	}
}

// TestErrorRate_SuccessAndError verifies that ErrorRate counts failed cycles
// against the total across fetchers.
func TestErrorRate_SuccessAndError(t *testing.T) {
	Reset()
	RecordCycle("weather", true)
	RecordCycle("crypto", true)
	RecordCycle("news", false)
	failed, total := ErrorRate(time.Minute)
	if failed != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", failed, total)
	}
}

// TestFetcherErrorRate verifies per-fetcher filtering.
func TestFetcherErrorRate(t *testing.T) {
	Reset()
	RecordCycle("news", false)
	RecordCycle("news", false)
	RecordCycle("crypto", true)
	if failed, total := FetcherErrorRate("news", time.Minute); failed != 2 || total != 2 {
		t.Errorf("FetcherErrorRate(news) = (%d, %d), want (2, 2)", failed, total)
	}
	if failed, total := FetcherErrorRate("crypto", time.Minute); failed != 0 || total != 1 {
		t.Errorf("FetcherErrorRate(crypto) = (%d, %d), want (0, 1)", failed, total)
	}
	if failed, total := FetcherErrorRate("", time.Minute); failed != 0 || total != 0 {
		t.Errorf("FetcherErrorRate(\"\") = (%d, %d), want (0, 0)", failed, total)
	}
}

// TestRecordDenied_NotCountedAsCycle verifies that denials feed DenialCount
// only and never change the cycle error rate.
func TestRecordDenied_NotCountedAsCycle(t *testing.T) {
	Reset()
	RecordDenied()
	RecordDenied()
	if n := DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	if _, total := ErrorRate(time.Minute); total != 0 {
		t.Errorf("ErrorRate() total = %d, want 0", total)
	}
}

// TestTracker_Window verifies that outcomes outside the window are ignored.
func TestTracker_Window(t *testing.T) {
	tr, clock := newTestTracker(time.Hour)
	tr.RecordCycle("weather", false)
	clock.t = clock.t.Add(10 * time.Minute)
	tr.RecordCycle("weather", true)

	if failed, total := tr.ErrorRate(5 * time.Minute); failed != 0 || total != 1 {
		t.Errorf("ErrorRate(5m) = (%d, %d), want (0, 1)", failed, total)
	}
	if failed, total := tr.ErrorRate(15 * time.Minute); failed != 1 || total != 2 {
		t.Errorf("ErrorRate(15m) = (%d, %d), want (1, 2)", failed, total)
	}
}

// TestTracker_Prune verifies that entries older than retention are dropped.
func TestTracker_Prune(t *testing.T) {
	tr, clock := newTestTracker(30 * time.Minute)
	tr.RecordCycle("weather", false)
	tr.RecordDenied()
	clock.t = clock.t.Add(31 * time.Minute)
	tr.RecordCycle("weather", true)

	if len(tr.cycles) != 1 {
		t.Errorf("len(cycles) = %d after prune, want 1", len(tr.cycles))
	}
	if len(tr.deniedTimes) != 0 {
		t.Errorf("len(deniedTimes) = %d after prune, want 0", len(tr.deniedTimes))
	}
}

func TestNewTracker_DefaultRetention(t *testing.T) {
	if tr := NewTracker(0); tr.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", tr.retention, DefaultRetention)
	}
}
