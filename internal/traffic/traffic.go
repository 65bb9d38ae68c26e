package traffic

import (
	"sync"
	"time"
)

// DefaultRetention bounds how far back outcomes are kept. Health windows
// longer than this see only the retained tail.
const DefaultRetention = time.Hour

var defaultTracker = NewTracker(DefaultRetention)

// RecordCycle records a fetch cycle outcome for the named fetcher.
func RecordCycle(fetcher string, ok bool) {
	defaultTracker.RecordCycle(fetcher, ok)
}

// RecordDenied records a rate-limit denial (429) on the public API.
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// ErrorRate returns (failed, total) fetch cycles across all fetchers within the window.
func ErrorRate(window time.Duration) (failed, total int) {
	return defaultTracker.ErrorRate(window)
}

// FetcherErrorRate returns (failed, total) fetch cycles for one fetcher within the window.
func FetcherErrorRate(fetcher string, window time.Duration) (failed, total int) {
	return defaultTracker.FetcherErrorRate(fetcher, window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

type outcome struct {
	at      time.Time
	fetcher string
	ok      bool
}

// Tracker maintains sliding windows of fetch cycle outcomes and API denials.
// Single source of truth for the degraded health check.
type Tracker struct {
	mu          sync.Mutex
	retention   time.Duration
	now         func() time.Time
	cycles      []outcome
	deniedTimes []time.Time
}

// NewTracker returns a tracker that forgets outcomes older than retention.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{retention: retention, now: time.Now}
}

// RecordCycle records one fetch cycle outcome.
func (t *Tracker) RecordCycle(fetcher string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.cycles = append(t.cycles, outcome{at: now, fetcher: fetcher, ok: ok})
	t.pruneLocked(now)
}

// RecordDenied records a rate-limit denial (429) in the tracker.
func (t *Tracker) RecordDenied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.deniedTimes = append(t.deniedTimes, now)
	t.pruneLocked(now)
}

// ErrorRate returns (failed, total) cycles within the window across all fetchers.
func (t *Tracker) ErrorRate(window time.Duration) (failed, total int) {
	return t.countCycles("", window)
}

// FetcherErrorRate returns (failed, total) cycles within the window for one fetcher.
func (t *Tracker) FetcherErrorRate(fetcher string, window time.Duration) (failed, total int) {
	if fetcher == "" {
		return 0, 0
	}
	return t.countCycles(fetcher, window)
}

func (t *Tracker) countCycles(fetcher string, window time.Duration) (failed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for _, o := range t.cycles {
		if o.at.Before(cutoff) {
			continue
		}
		if fetcher != "" && o.fetcher != fetcher {
			continue
		}
		total++
		if !o.ok {
			failed++
		}
	}
	return failed, total
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, ts := range t.deniedTimes {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// Reset clears all recorded outcomes from the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycles = nil
	t.deniedTimes = nil
}

// pruneLocked drops entries older than the retention period. Entries are
// appended in time order so only a prefix is ever removed.
// Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	i := 0
	for ; i < len(t.cycles) && t.cycles[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.cycles = append(t.cycles[:0], t.cycles[i:]...)
	}
	j := 0
	for ; j < len(t.deniedTimes) && t.deniedTimes[j].Before(cutoff); j++ {
	}
	if j > 0 {
		t.deniedTimes = append(t.deniedTimes[:0], t.deniedTimes[j:]...)
	}
}
