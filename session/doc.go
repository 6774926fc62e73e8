// Package session houses implementations of core.SessionService. The
// interface itself (and the Session struct) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages (agent, runner) from depending on concrete storage.
//
// Two implementations are provided:
//
//   - InMemoryService: a volatile store keyed by (app, user) suitable for
//     tests and single-process deployments.
//   - ImplicitService: a proxy over any core.SessionService that makes
//     GetSession total — it never fails with "not found", transparently
//     reusing the user's first listed session or creating a fresh one.
//
// Add additional backends (Redis, Postgres, a managed platform client, etc.)
// without changing any calling code; only the wiring layer decides which
// implementation to instantiate and whether to wrap it in ImplicitService.
package session
