package windlass

// State is the agent lifecycle state. Exactly one state is active at a
// time; transitions are driven by the agent package.
type State string

const (
	// StateCreated is the initial state before Setup has run.
	StateCreated State = "created"
	// StateInitializing is held while Setup wires components.
	StateInitializing State = "initializing"
	// StateReady means all subsystems came up and dispatch is serving.
	StateReady State = "ready"
	// StateDegraded means an optional subsystem (e.g. the HTTP listener)
	// failed but core dispatch still functions. Readiness probes report
	// not-ready in this state.
	StateDegraded State = "degraded"
	// StateShuttingDown is held while Cleanup tears components down.
	StateShuttingDown State = "shutting_down"
	// StateStopped is terminal.
	StateStopped State = "stopped"
)

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// Alive reports whether the process is past Created and not yet Stopped.
// This is the liveness signal: it answers "is the process running",
// independent of dependency health.
func (s State) Alive() bool {
	return s != StateCreated && s != StateStopped
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateStopped
}
