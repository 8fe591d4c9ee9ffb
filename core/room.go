package core

import (
	"sort"
	"time"
)

// MemberConfig holds the per-member generation settings applied when the
// member takes its turn. Numeric fields are pointers so absence can be
// distinguished from zero; the engine substitutes its configured defaults
// for nil values.
type MemberConfig struct {
	SystemPrompt  string   `json:"system_prompt,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int64   `json:"max_tokens,omitempty"`
	ResponseStyle string   `json:"response_style,omitempty"`
}

// RoomMember is one configured AI participant of a Room. ModelID selects the
// responder implementation through the registry; Order fixes the member's
// position in the speaking sequence.
type RoomMember struct {
	ID          string       `json:"id"`
	ModelID     string       `json:"model_id"`
	DisplayName string       `json:"display_name"`
	Order       int          `json:"order"`
	Enabled     bool         `json:"enabled"`
	Config      MemberConfig `json:"config"`
}

// Room is a named, persistent group of configured AI speakers. Rooms are
// created once by administrative operations and treated as immutable for the
// lifetime of any session bound to them.
type Room struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	OwnerID   string       `json:"owner_id"`
	Members   []RoomMember `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
}

// EnabledMembers returns the enabled members sorted by their configured
// order. The result is a fresh slice; mutating it does not affect the room.
func (r *Room) EnabledMembers() []RoomMember {
	members := make([]RoomMember, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Enabled {
			members = append(members, m)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	return members
}

// Member returns the member with the given id and an existence flag.
func (r *Room) Member(id string) (RoomMember, bool) {
	for _, m := range r.Members {
		if m.ID == id {
			return m, true
		}
	}
	return RoomMember{}, false
}

// Clone returns a deep copy of the room safe for independent mutation.
func (r *Room) Clone() *Room {
	clone := *r
	clone.Members = make([]RoomMember, len(r.Members))
	for i, m := range r.Members {
		if m.Config.Temperature != nil {
			temp := *m.Config.Temperature
			m.Config.Temperature = &temp
		}
		if m.Config.MaxTokens != nil {
			max := *m.Config.MaxTokens
			m.Config.MaxTokens = &max
		}
		clone.Members[i] = m
	}
	return &clone
}
