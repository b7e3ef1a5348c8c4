package orchestrator

import "testing"

func TestHandle_InitialStateIsWaiting(t *testing.T) {
	h := newHandle()
	if got := h.Status(); got != Waiting {
		t.Errorf("Status() = %v, want %v", got, Waiting)
	}
	if h.Stopped() {
		t.Error("freshly constructed handle should not be stopped")
	}
}

func TestHandle_Stop(t *testing.T) {
	h := newHandle()
	h.Stop()
	if !h.Stopped() {
		t.Error("Stopped() = false after Stop()")
	}
	h.Stop()
	if !h.Stopped() {
		t.Error("Stop should be idempotent")
	}
}

func TestHandle_TriggerNowDoesNotBlockWhenFull(t *testing.T) {
	h := newHandle()
	h.TriggerNow()
	h.TriggerNow() // second call must not block even though the buffer holds 1

	select {
	case <-h.trigger:
	default:
		t.Fatal("expected a pending trigger")
	}
	select {
	case <-h.trigger:
		t.Fatal("expected only one buffered trigger")
	default:
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		Waiting:    "waiting",
		Processing: "processing",
		Stopping:   "stopping",
		State(99):  "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
