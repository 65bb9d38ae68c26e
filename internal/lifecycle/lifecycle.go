package lifecycle

import "sync/atomic"

// State is the process lifecycle phase.
type State int32

const (
	Starting State = iota
	Serving
	Draining
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

var state atomic.Int32

// Set records the current phase. main moves Starting -> Serving once the
// listener is up and Serving -> Draining on SIGTERM/SIGINT.
func Set(s State) {
	state.Store(int32(s))
}

// Current returns the current phase.
func Current() State {
	return State(state.Load())
}

// SetShuttingDown moves the process to Draining, or back to Serving when v is false.
// Health handler returns 503 with status shutting-down while draining.
func SetShuttingDown(v bool) {
	if v {
		Set(Draining)
		return
	}
	Set(Serving)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return Current() == Draining
}
