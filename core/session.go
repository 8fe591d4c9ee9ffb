package core

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates the lifecycle states of a session. The engine is
// the only writer; every transition is persisted before the matching state
// event is emitted.
type SessionState string

const (
	// StateInitializing is the state of a freshly created session whose
	// first turn has not started yet.
	StateInitializing SessionState = "INITIALIZING"
	// StateAIThinking indicates the current speaker's responder call is
	// being prepared.
	StateAIThinking SessionState = "AI_THINKING"
	// StateAISpeaking indicates a responder call is in flight for the
	// current speaker.
	StateAISpeaking SessionState = "AI_SPEAKING"
	// StateAIFinished indicates the previous turn completed and the session
	// is waiting for an explicit advancement command.
	StateAIFinished SessionState = "AI_FINISHED"
	// StateSupplementing indicates a supplemental follow-up call is in
	// flight against an already-answered speaker.
	StateSupplementing SessionState = "SUPPLEMENTING"
	// StatePaused indicates turn advancement is suspended until Resume.
	StatePaused SessionState = "PAUSED"
	// StateCompleted is terminal: every speaker finished or was skipped.
	StateCompleted SessionState = "COMPLETED"
	// StateError is terminal: a main-turn responder call failed.
	StateError SessionState = "ERROR"
)

// Terminal reports whether the state permits no further turn advancement.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// SpeakerStatus enumerates the per-speaker turn outcomes.
type SpeakerStatus string

const (
	// SpeakerWaiting means the speaker's turn has not started.
	SpeakerWaiting SpeakerStatus = "waiting"
	// SpeakerSpeaking means the speaker's turn is in flight.
	SpeakerSpeaking SpeakerStatus = "speaking"
	// SpeakerFinished means the speaker answered.
	SpeakerFinished SpeakerStatus = "finished"
	// SpeakerSkipped means the speaker's turn was skipped by command.
	SpeakerSkipped SpeakerStatus = "skipped"
)

// Speaker is a room member's per-session turn-tracking record.
type Speaker struct {
	MemberID        string        `json:"member_id"`
	Status          SpeakerStatus `json:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	SupplementCount int           `json:"supplement_count"`
}

// Usage captures token accounting reported by a responder for one answer.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Message is one entry of a session's append-only conversation log. Assistant
// messages carry the SpeakerID of the member that produced them; supplemental
// question/answer pairs are linked to their origin via ParentID.
type Message struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"` // user, assistant or system
	Content      string    `json:"content"`
	SpeakerID    string    `json:"speaker_id,omitempty"`
	ParentID     string    `json:"parent_id,omitempty"`
	Supplemental bool      `json:"supplemental,omitempty"`
	Model        string    `json:"model,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one sequential question-answering run over a Room. It references
// its room by id rather than embedding it; the engine resolves the room
// through the store on every turn so the session never owns room state.
//
// CurrentIndex points at the next speaker to act and only ever increases
// (advance or skip). Messages is append-only.
type Session struct {
	ID           string       `json:"id"`
	RoomID       string       `json:"room_id"`
	UserID       string       `json:"user_id"`
	Question     string       `json:"question"`
	State        SessionState `json:"state"`
	CurrentIndex int          `json:"current_index"`
	Speakers     []Speaker    `json:"speakers"`
	Messages     []Message    `json:"messages"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewSession builds an INITIALIZING session for the room's enabled members in
// speaking order, seeding the message log with the question as a user
// message.
func NewSession(room *Room, userID, question string) *Session {
	now := time.Now().UTC()
	members := room.EnabledMembers()
	speakers := make([]Speaker, len(members))
	for i, m := range members {
		speakers[i] = Speaker{MemberID: m.ID, Status: SpeakerWaiting}
	}
	return &Session{
		ID:        NewID(),
		RoomID:    room.ID,
		UserID:    userID,
		Question:  question,
		State:     StateInitializing,
		Speakers:  speakers,
		Messages:  []Message{{ID: NewID(), Role: "user", Content: question, CreatedAt: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewID generates a unique identifier for sessions, rooms and messages.
func NewID() string { return uuid.NewString() }

// Touch refreshes the UpdatedAt timestamp.
func (s *Session) Touch() { s.UpdatedAt = time.Now().UTC() }

// AddMessage appends a message to the log and refreshes UpdatedAt.
func (s *Session) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.Touch()
}

// Speaker returns a pointer to the turn record for the given member id.
func (s *Session) Speaker(memberID string) (*Speaker, bool) {
	for i := range s.Speakers {
		if s.Speakers[i].MemberID == memberID {
			return &s.Speakers[i], true
		}
	}
	return nil, false
}

// CurrentSpeaker returns the turn record CurrentIndex points at, or false
// when the index is past the end of the speaker list.
func (s *Session) CurrentSpeaker() (*Speaker, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Speakers) {
		return nil, false
	}
	return &s.Speakers[s.CurrentIndex], true
}

// Exhausted reports whether every speaker has acted or been skipped.
func (s *Session) Exhausted() bool { return s.CurrentIndex >= len(s.Speakers) }

// LastAnswerBy returns the most recent assistant message produced by the
// given speaker, or false when the speaker has not answered yet.
func (s *Session) LastAnswerBy(speakerID string) (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "assistant" && s.Messages[i].SpeakerID == speakerID {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// AssistantMessages returns the assistant entries of the log in order.
func (s *Session) AssistantMessages() []Message {
	res := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == "assistant" {
			res = append(res, m)
		}
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
// Speaker timestamp pointers are reallocated so clones never alias.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Speakers = make([]Speaker, len(s.Speakers))
	for i, sp := range s.Speakers {
		if sp.StartedAt != nil {
			t := *sp.StartedAt
			sp.StartedAt = &t
		}
		if sp.FinishedAt != nil {
			t := *sp.FinishedAt
			sp.FinishedAt = &t
		}
		clone.Speakers[i] = sp
	}
	clone.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		if m.Usage != nil {
			u := *m.Usage
			m.Usage = &u
		}
		clone.Messages[i] = m
	}
	return &clone
}
