package bus

import (
	"testing"

	"github.com/MissChina/ai-chat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversInOrderToAllSubscribers(t *testing.T) {
	b := New()

	var first, second []EventKind
	unsub1 := b.Subscribe("s1", func(ev Event) { first = append(first, ev.Kind) })
	unsub2 := b.Subscribe("s1", func(ev Event) { second = append(second, ev.Kind) })
	defer unsub1()
	defer unsub2()

	b.Emit(Event{Kind: KindState, SessionID: "s1"})
	b.Emit(Event{Kind: KindChunk, SessionID: "s1"})
	b.Emit(Event{Kind: KindComplete, SessionID: "s1"})

	expected := []EventKind{KindState, KindChunk, KindComplete}
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)
}

func TestEmitScopedToSession(t *testing.T) {
	b := New()

	var got []string
	defer b.Subscribe("s1", func(ev Event) { got = append(got, ev.SessionID) })()

	b.Emit(Event{Kind: KindState, SessionID: "s1"})
	b.Emit(Event{Kind: KindState, SessionID: "s2"})

	assert.Equal(t, []string{"s1"}, got)
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := New()

	b.Emit(Event{Kind: KindState, SessionID: "s1"})

	var count int
	defer b.Subscribe("s1", func(Event) { count++ })()

	assert.Zero(t, count)
}

func TestUnsubscribeStopsDeliveryAndReleasesBucket(t *testing.T) {
	b := New()

	var count int
	unsub := b.Subscribe("s1", func(Event) { count++ })
	require.Equal(t, 1, b.SubscriberCount("s1"))

	b.Emit(Event{Kind: KindState, SessionID: "s1"})
	assert.Equal(t, 1, count)

	unsub()
	unsub() // idempotent
	assert.Zero(t, b.SubscriberCount("s1"))

	b.Emit(Event{Kind: KindState, SessionID: "s1"})
	assert.Equal(t, 1, count)
}

func TestEventCarriesSnapshot(t *testing.T) {
	b := New()

	var got Event
	defer b.Subscribe("s1", func(ev Event) { got = ev })()

	snap := &core.Session{ID: "s1", State: core.StateAIFinished}
	b.Emit(Event{Kind: KindState, SessionID: "s1", Session: snap})

	require.NotNil(t, got.Session)
	assert.Equal(t, core.StateAIFinished, got.Session.State)
}
