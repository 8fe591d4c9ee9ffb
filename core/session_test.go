package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *Room {
	return &Room{
		ID:      "r1",
		Name:    "Roundtable",
		OwnerID: "u1",
		Members: []RoomMember{
			{ID: "m3", DisplayName: "Gamma", Order: 3, Enabled: true},
			{ID: "m1", DisplayName: "Alpha", Order: 1, Enabled: true},
			{ID: "m2", DisplayName: "Beta", Order: 2, Enabled: false},
		},
	}
}

func TestEnabledMembersOrdered(t *testing.T) {
	members := testRoom().EnabledMembers()

	require.Len(t, members, 2)
	assert.Equal(t, "m1", members[0].ID)
	assert.Equal(t, "m3", members[1].ID)
}

func TestNewSessionSeedsQuestionAndSpeakers(t *testing.T) {
	s := NewSession(testRoom(), "u1", "What is the answer?")

	assert.Equal(t, StateInitializing, s.State)
	assert.Equal(t, "r1", s.RoomID)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.NotEmpty(t, s.ID)

	// Disabled members get no speaker entry; order follows member order.
	require.Len(t, s.Speakers, 2)
	assert.Equal(t, "m1", s.Speakers[0].MemberID)
	assert.Equal(t, "m3", s.Speakers[1].MemberID)
	assert.Equal(t, SpeakerWaiting, s.Speakers[0].Status)

	require.Len(t, s.Messages, 1)
	assert.Equal(t, "user", s.Messages[0].Role)
	assert.Equal(t, "What is the answer?", s.Messages[0].Content)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateError.Terminal())
	assert.False(t, StateAIFinished.Terminal())
	assert.False(t, StatePaused.Terminal())
}

func TestLastAnswerBy(t *testing.T) {
	s := NewSession(testRoom(), "u1", "Q")
	s.AddMessage(Message{ID: "a1", Role: "assistant", Content: "first", SpeakerID: "m1"})
	s.AddMessage(Message{ID: "a2", Role: "assistant", Content: "second", SpeakerID: "m1", Supplemental: true})
	s.AddMessage(Message{ID: "a3", Role: "assistant", Content: "other", SpeakerID: "m3"})

	answer, ok := s.LastAnswerBy("m1")
	require.True(t, ok)
	assert.Equal(t, "a2", answer.ID)

	_, ok = s.LastAnswerBy("m2")
	assert.False(t, ok)
}

func TestCurrentSpeakerBounds(t *testing.T) {
	s := NewSession(testRoom(), "u1", "Q")

	sp, ok := s.CurrentSpeaker()
	require.True(t, ok)
	assert.Equal(t, "m1", sp.MemberID)

	s.CurrentIndex = len(s.Speakers)
	_, ok = s.CurrentSpeaker()
	assert.False(t, ok)
	assert.True(t, s.Exhausted())
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSession(testRoom(), "u1", "Q")
	now := time.Now().UTC()
	s.Speakers[0].StartedAt = &now
	s.AddMessage(Message{ID: "a1", Role: "assistant", Content: "x", SpeakerID: "m1", Usage: &Usage{InputTokens: 1}})

	clone := s.Clone()
	clone.Speakers[0].Status = SpeakerFinished
	*clone.Speakers[0].StartedAt = now.Add(time.Hour)
	clone.Messages[0].Content = "mutated"
	clone.Messages[1].Usage.InputTokens = 99

	assert.Equal(t, SpeakerWaiting, s.Speakers[0].Status)
	assert.Equal(t, now, *s.Speakers[0].StartedAt)
	assert.Equal(t, "Q", s.Messages[0].Content)
	assert.Equal(t, 1, s.Messages[1].Usage.InputTokens)
}

func TestRoomCloneIsDeep(t *testing.T) {
	temp := 0.2
	max := int64(64)
	room := testRoom()
	room.Members[0].Config = MemberConfig{Temperature: &temp, MaxTokens: &max}

	clone := room.Clone()
	clone.Members[0].DisplayName = "mutated"
	*clone.Members[0].Config.Temperature = 0.9
	*clone.Members[0].Config.MaxTokens = 4096

	assert.Equal(t, "Gamma", room.Members[0].DisplayName)
	assert.Equal(t, 0.2, *room.Members[0].Config.Temperature)
	assert.Equal(t, int64(64), *room.Members[0].Config.MaxTokens)
}

func TestAddMessageTouchesUpdatedAt(t *testing.T) {
	s := NewSession(testRoom(), "u1", "Q")
	before := s.UpdatedAt

	time.Sleep(time.Millisecond)
	s.AddMessage(Message{ID: "a1", Role: "assistant", Content: "x"})

	assert.True(t, s.UpdatedAt.After(before))
}
