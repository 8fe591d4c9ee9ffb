// Package core defines the shared data model and contracts of the roundtable
// chat system: rooms and their configured AI members, sessions with their
// per-speaker turn records and append-only message log, the closed set of
// tagged errors, and the SessionStore persistence capability consumed by the
// engine.
//
// Types in this package carry no orchestration logic. State transitions are
// owned exclusively by the engine package; stores persist snapshots produced
// by it. Session exposes Clone so that snapshots handed across goroutine or
// subscriber boundaries never alias engine-internal state.
package core
