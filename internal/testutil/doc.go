// Package testutil provides fluent builders for constructing rooms and
// sessions in tests.
package testutil
