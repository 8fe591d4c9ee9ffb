package testutil

import (
	"github.com/MissChina/ai-chat/core"
)

// RoomBuilder helps construct rooms with fluent chaining for tests.
// Example:
//
//	room := NewRoomBuilder("Panel").Member("m1", "gpt-4o", 1).Build()
type RoomBuilder struct {
	name    string
	ownerID string
	members []core.RoomMember
}

// NewRoomBuilder creates a new builder for a room with the given name.
// Use chainable methods (Owner, Member, Members) then call Build.
func NewRoomBuilder(name string) *RoomBuilder {
	return &RoomBuilder{name: name, ownerID: "test-user"}
}

// Owner sets the room owner (chainable).
func (b *RoomBuilder) Owner(id string) *RoomBuilder {
	b.ownerID = id
	return b
}

// Member appends an enabled member with the given id, model and turn order
// (chainable). The display name defaults to the member id.
func (b *RoomBuilder) Member(id, modelID string, order int) *RoomBuilder {
	b.members = append(b.members, core.RoomMember{
		ID:          id,
		ModelID:     modelID,
		DisplayName: id,
		Order:       order,
		Enabled:     true,
	})
	return b
}

// Members appends pre-built members as-is (chainable).
func (b *RoomBuilder) Members(ms ...core.RoomMember) *RoomBuilder {
	b.members = append(b.members, ms...)
	return b
}

// Build returns a *core.Room with the accumulated members.
func (b *RoomBuilder) Build() *core.Room {
	return &core.Room{
		Name:    b.name,
		OwnerID: b.ownerID,
		Members: b.members,
	}
}
