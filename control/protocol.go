// Package control implements the daemon's out-of-process control surface:
// a Unix-domain-socket channel carrying newline-delimited JSON requests
// and responses, so a CLI subcommand (or, later, an out-of-process
// dashboard) can drive an orchestrator.Handle without this repo growing
// an HTTP surface of its own.
package control

// Request is one control-channel call. Command is its only field.
type Request struct {
	Command string `json:"command"`
}

// Response carries either a successful result or an error message, never
// both. Status mirrors orchestrator.State.String() for the "status"
// command and is empty for every other command.
type Response struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	// CommandTriggerNow requests an out-of-schedule processing cycle.
	CommandTriggerNow = "trigger"
	// CommandStop requests the daemon shut down.
	CommandStop = "stop"
	// CommandStatus asks for the daemon's current run state.
	CommandStatus = "status"
)
