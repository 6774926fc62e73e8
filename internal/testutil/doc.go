// Package testutil contains fluent builders and context helpers shared by
// tests across packages. It is internal: production code must not depend on
// it.
package testutil
