// Package orchestrator owns the daemon's processing cycle: waking on a
// schedule or a manual trigger, copying each enabled repository into a
// throwaway workspace, fanning analyses out across configured LLM
// endpoints, and running mutation testing, all while staying
// cancel-safe against a single stop signal.
package orchestrator

import (
	"sync/atomic"
)

// State is one of the daemon's three coarse-grained run states.
type State int32

const (
	Waiting State = iota
	Processing
	Stopping
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Processing:
		return "processing"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Handle is the only control surface ever exposed outside this package.
// It holds no reference to the owning Daemon's internals: state is a
// lock-free atomic int32, the stop flag is a lock-free atomic bool, and a
// manual trigger is a buffered channel a reader drains between ticks.
// Reads never contend with the daemon's own writes.
type Handle struct {
	state   atomic.Int32
	stop    atomic.Bool
	trigger chan struct{}
}

func newHandle() *Handle {
	h := &Handle{trigger: make(chan struct{}, 1)}
	h.state.Store(int32(Waiting))
	return h
}

// Status returns the daemon's current state.
func (h *Handle) Status() State {
	return State(h.state.Load())
}

func (h *Handle) setState(s State) {
	h.state.Store(int32(s))
}

// Stop requests the daemon shut down. Idempotent; safe to call from any
// goroutine.
func (h *Handle) Stop() {
	h.stop.Store(true)
}

// Stopped reports whether Stop has been called.
func (h *Handle) Stopped() bool {
	return h.stop.Load()
}

// TriggerNow requests an out-of-schedule processing cycle. A trigger
// already pending is not duplicated (the channel is buffered to exactly
// one slot); the daemon returns to whatever state the schedule would
// otherwise dictate once the triggered cycle completes.
func (h *Handle) TriggerNow() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}
