// Package core provides the foundational domain types, interfaces and execution
// contexts used by FraudGuard. It defines the core abstractions for:
//
//   - Sessions (stateful conversational containers with event history, keyed
//     by application name, user id and session id)
//   - Events (immutable conversation + orchestration records)
//   - The SessionService capability surface implemented by stores and proxies
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - Alert history storage for previously flagged cards
//
// The package intentionally keeps implementation concerns (persistence, the
// scoring agent, transport) out of scope, exposing small interfaces to enable
// custom backends and in-memory test doubles.
package core
