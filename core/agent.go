package core

// Agent is the unit of work driven by the runner. FraudGuard deploys a single
// agent (the fraud detector), but the interface keeps the runner decoupled
// from the concrete implementation so tests can substitute scripted agents.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown
//   - Emit events through the provided RunContext
//   - Leave persistence to the runner (emitted events are appended by it)
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "detector", "mock").
type AgentInfo struct{ Name, Type string }
