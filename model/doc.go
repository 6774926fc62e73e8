// Package model defines the provider-neutral model abstraction used by the
// fraud detector: a normalized Request/Response pair, tool declarations, and
// the Model interface implemented by the gemini, openai and anthropic
// subpackages. MockModel provides a deterministic offline implementation for
// tests and examples.
package model
