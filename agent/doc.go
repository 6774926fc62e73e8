// Package agent implements the fraud detector: a model-driven agent that
// scores credit card transactions, augments them with a fraud likelihood and
// reason, and publishes the results through its registered tools.
package agent
