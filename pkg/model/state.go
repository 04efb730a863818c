package model

// ContextState represents the lifecycle state of the shared execution context.
type ContextState string

const (
	ContextStateUninitialized ContextState = "UNINITIALIZED"
	ContextStateActive        ContextState = "ACTIVE"
	ContextStateShutdown      ContextState = "SHUTDOWN"
)

// String returns the string representation of the context state.
func (s ContextState) String() string {
	return string(s)
}

// ValidContextTransitions defines the allowed state transitions for the
// shared execution context. SHUTDOWN returns to UNINITIALIZED once teardown
// finishes, or on an explicit reset.
var ValidContextTransitions = map[ContextState][]ContextState{
	ContextStateUninitialized: {ContextStateActive, ContextStateShutdown},
	ContextStateActive:        {ContextStateShutdown},
	ContextStateShutdown:      {ContextStateUninitialized},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s ContextState) CanTransitionTo(next ContextState) bool {
	for _, allowed := range ValidContextTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
