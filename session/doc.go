// Package session provides SessionStore implementations. The in-memory store
// is the default for development, examples and tests; durable deployments
// supply their own core.SessionStore implementation.
package session
