// Package logging provides a minimal logging interface and adapters for FraudGuard.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runner, tools and model adapters use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - FraudGuardLogger with contextual helpers (session, run, component) and
//     domain specific helpers for tool, model and publish calls
//
// The session-continuity proxy itself performs no logging; observability
// belongs to the surrounding runtime. The design intentionally keeps the
// interface minimal to avoid vendor lock-in while supporting structured
// logging where available.
package logging
