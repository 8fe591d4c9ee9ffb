package core

// SessionStore persists rooms and sessions. It is the single source of truth
// for session state: the engine writes every mutation back through
// SaveSession before emitting the corresponding event, so a concurrent reader
// always observes state consistent with the latest event.
//
// Implementations must return defensive copies; callers may freely mutate
// returned values without affecting stored state. Lookups of unknown ids
// return an error matching ErrNotFound.
type SessionStore interface {
	// CreateRoom persists a room, assigning an id when absent.
	CreateRoom(room *Room) (*Room, error)

	// GetRoom returns the room with the given id.
	GetRoom(id string) (*Room, error)

	// ListRooms returns the rooms owned by the given user, newest first.
	ListRooms(ownerID string) ([]*Room, error)

	// SaveSession persists a session snapshot, overwriting any previous
	// snapshot with the same id.
	SaveSession(session *Session) error

	// GetSession returns the session with the given id.
	GetSession(id string) (*Session, error)

	// ListSessions returns the sessions bound to the given room, newest
	// first.
	ListSessions(roomID string) ([]*Session, error)

	// Reset clears all rooms and sessions. Intended for test isolation.
	Reset() error
}
