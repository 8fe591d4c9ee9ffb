// Package bus implements the per-session event fan-out decoupling the engine
// from transport-layer subscribers. Delivery is synchronous and in emission
// order; there is no buffering or replay, so a subscriber attaching after an
// event was emitted never sees it. Transports compensate by sending a full
// state snapshot immediately upon subscription.
package bus

import (
	"sort"
	"sync"

	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/responder"
)

// EventKind discriminates the three event shapes flowing over the bus.
type EventKind string

const (
	// KindState carries a full session snapshot after a state change.
	KindState EventKind = "state"
	// KindChunk carries one incremental content fragment from the active
	// responder.
	KindChunk EventKind = "chunk"
	// KindComplete carries the full result of a finished turn or
	// supplement.
	KindComplete EventKind = "complete"
)

// Event is one notification emitted by the engine. Exactly one of Session,
// Chunk or Result is set according to Kind; SpeakerID tags chunk and
// complete events with the member that produced them.
type Event struct {
	Kind      EventKind         `json:"kind"`
	SessionID string            `json:"session_id"`
	SpeakerID string            `json:"speaker_id,omitempty"`
	Session   *core.Session     `json:"session,omitempty"`
	Chunk     *responder.Chunk  `json:"chunk,omitempty"`
	Result    *responder.Result `json:"result,omitempty"`
}

// Listener receives events for one session in emission order.
type Listener func(event Event)

// EventBus fans events out to the current subscribers of their session.
// Safe for concurrent use. Emission holds no lock while invoking listeners
// beyond a read lock on the subscriber table, so listeners must not
// subscribe or unsubscribe from within their own callback.
type EventBus struct {
	mu      sync.RWMutex
	nextID  int
	buckets map[string]map[int]Listener
}

// New constructs an empty EventBus.
func New() *EventBus {
	return &EventBus{buckets: make(map[string]map[int]Listener)}
}

// Subscribe registers a listener for the given session id and returns its
// unsubscribe function. Unsubscribing is idempotent; removing the last
// listener of a session releases its bucket.
func (b *EventBus) Subscribe(sessionID string, listener Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	bucket, ok := b.buckets[sessionID]
	if !ok {
		bucket = make(map[int]Listener)
		b.buckets[sessionID] = bucket
	}
	bucket[id] = listener

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		bucket, ok := b.buckets[sessionID]
		if !ok {
			return
		}
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(b.buckets, sessionID)
		}
	}
}

// Emit delivers the event synchronously to every listener currently
// subscribed to its session id, in subscription order.
func (b *EventBus) Emit(event Event) {
	b.mu.RLock()
	bucket := b.buckets[event.SessionID]
	listeners := make([]Listener, 0, len(bucket))
	ids := make([]int, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	// Map iteration order is random; subscription ids are monotonic, so
	// sorting restores subscription order.
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, bucket[id])
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

// SubscriberCount returns the number of listeners currently subscribed to
// the session.
func (b *EventBus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buckets[sessionID])
}
