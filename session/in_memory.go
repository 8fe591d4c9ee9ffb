package session

import (
	"sort"
	"sync"

	"github.com/MissChina/ai-chat/core"
)

// InMemoryStore is a volatile SessionStore keeping rooms and sessions in
// process-local maps. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Every value crossing the store boundary is
// cloned so callers can never mutate internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*core.Room
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rooms:    make(map[string]*core.Room),
		sessions: make(map[string]*core.Session),
	}
}

// CreateRoom stores a clone of the room, assigning an id when absent.
func (s *InMemoryStore) CreateRoom(room *core.Room) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := room.Clone()
	if stored.ID == "" {
		stored.ID = core.NewID()
	}
	s.rooms[stored.ID] = stored
	return stored.Clone(), nil
}

// GetRoom returns a clone of the room with the given id.
func (s *InMemoryStore) GetRoom(id string) (*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "room", ID: id}
	}
	return room.Clone(), nil
}

// ListRooms returns clones of the rooms owned by ownerID, newest first.
func (s *InMemoryStore) ListRooms(ownerID string) ([]*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []*core.Room
	for _, r := range s.rooms {
		if r.OwnerID == ownerID {
			rooms = append(rooms, r.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

// SaveSession stores a clone of the session snapshot, overwriting any
// previous snapshot with the same id.
func (s *InMemoryStore) SaveSession(sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// GetSession returns a clone of the session with the given id.
func (s *InMemoryStore) GetSession(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "session", ID: id}
	}
	return sess.Clone(), nil
}

// ListSessions returns clones of the sessions bound to roomID, newest first.
func (s *InMemoryStore) ListSessions(roomID string) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []*core.Session
	for _, sess := range s.sessions {
		if sess.RoomID == roomID {
			sessions = append(sessions, sess.Clone())
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Reset drops all rooms and sessions.
func (s *InMemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = make(map[string]*core.Room)
	s.sessions = make(map[string]*core.Session)
	return nil
}
