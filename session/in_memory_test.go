package session

import (
	"testing"

	"github.com/MissChina/ai-chat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func testRoom() *core.Room {
	return &core.Room{
		Name:    "Roundtable",
		OwnerID: "u1",
		Members: []core.RoomMember{
			{ID: "m1", ModelID: "mock", DisplayName: "Alpha", Order: 1, Enabled: true},
		},
	}
}

func TestRoomLifecycle(t *testing.T) {
	store := NewInMemoryStore()

	created, err := store.CreateRoom(testRoom())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := store.GetRoom(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	rooms, err := store.ListRooms("u1")
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	rooms, err = store.ListRooms("someone-else")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	_, err = store.GetRoom("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	room, err := store.CreateRoom(testRoom())
	require.NoError(t, err)

	sess := core.NewSession(room, "u1", "Q")
	require.NoError(t, store.SaveSession(sess))

	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateInitializing, got.State)

	sessions, err := store.ListSessions(room.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = store.GetSession("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReturnedValuesAreIsolated(t *testing.T) {
	store := NewInMemoryStore()
	room, err := store.CreateRoom(testRoom())
	require.NoError(t, err)

	sess := core.NewSession(room, "u1", "Q")
	require.NoError(t, store.SaveSession(sess))

	// Mutating a returned snapshot must not leak into the store.
	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	got.State = core.StateError
	got.Speakers[0].Status = core.SpeakerFinished

	fresh, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateInitializing, fresh.State)
	assert.Equal(t, core.SpeakerWaiting, fresh.Speakers[0].Status)

	// Same for rooms.
	gotRoom, err := store.GetRoom(room.ID)
	require.NoError(t, err)
	gotRoom.Members[0].Enabled = false

	freshRoom, err := store.GetRoom(room.ID)
	require.NoError(t, err)
	assert.True(t, freshRoom.Members[0].Enabled)
}

func TestReset(t *testing.T) {
	store := NewInMemoryStore()
	room, err := store.CreateRoom(testRoom())
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(core.NewSession(room, "u1", "Q")))

	require.NoError(t, store.Reset())

	_, err = store.GetRoom(room.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	sessions, err := store.ListSessions(room.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
