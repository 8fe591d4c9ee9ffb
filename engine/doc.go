// Package engine implements the sequential turn-sequencing state machine. A
// SequentialEngine owns session lifecycle: it creates sessions, drives one
// speaker at a time through a responder, reconciles user-issued control
// commands (next, pause, resume, skip) with in-flight responder calls, and
// handles the supplemental-question sub-flow with rollback on failure.
//
// Commands that would violate the current state fail immediately with a
// typed error instead of queuing. Per-session mutexes make each
// check-and-set section atomic, but are never held across a responder call:
// the persisted state (AI_SPEAKING, SUPPLEMENTING) is what excludes
// conflicting commands while a call is in flight. Every mutation is written
// to the store before its event is emitted.
package engine
