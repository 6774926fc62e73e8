// Package runner coordinates scoring runs: it resolves the session for the
// calling user (creating one implicitly on first contact), appends the
// incoming transaction to history, drives the agent, and persists every
// non-partial event the agent emits.
package runner
