package refresh

import (
	"sync"
	"time"
)

// FetcherStatus is a point-in-time view of one fetcher, reported on /health.
type FetcherStatus struct {
	Name        string     `json:"name"`
	Interval    string     `json:"interval"`
	Running     bool       `json:"running"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	Runs        int        `json:"runs"`
	Failures    int        `json:"failures"`
}

// StatusRegistry records run outcomes per fetcher. Safe for concurrent use.
type StatusRegistry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*FetcherStatus
}

// NewStatusRegistry returns an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{byName: make(map[string]*FetcherStatus)}
}

// Register adds a fetcher. Registering the same name twice updates its interval.
func (r *StatusRegistry) Register(name string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.byName[name]; ok {
		st.Interval = interval.String()
		return
	}
	r.order = append(r.order, name)
	r.byName[name] = &FetcherStatus{Name: name, Interval: interval.String()}
}

func (r *StatusRegistry) started(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.getLocked(name)
	st.Running = true
	t := at
	st.LastRun = &t
}

func (r *StatusRegistry) finished(name string, at time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.getLocked(name)
	st.Running = false
	st.Runs++
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
		return
	}
	t := at
	st.LastSuccess = &t
	st.LastError = ""
}

func (r *StatusRegistry) getLocked(name string) *FetcherStatus {
	st, ok := r.byName[name]
	if !ok {
		st = &FetcherStatus{Name: name}
		r.byName[name] = st
		r.order = append(r.order, name)
	}
	return st
}

// Snapshot returns a copy of all statuses in registration order.
func (r *StatusRegistry) Snapshot() []FetcherStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FetcherStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	return out
}

// Get returns the status of one fetcher.
func (r *StatusRegistry) Get(name string) (FetcherStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byName[name]
	if !ok {
		return FetcherStatus{}, false
	}
	return *st, true
}
