// Package publish provides the at-most-once topic publishing capability used
// by the detector's publish_record tool. The Publisher interface abstracts
// the concrete transport; GooglePublisher implements it over Cloud Pub/Sub
// with per-topic publisher caching and immediate flushing, and
// MemoryPublisher captures messages for tests.
package publish
