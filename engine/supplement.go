package engine

import (
	"context"

	"github.com/MissChina/ai-chat/bus"
	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/responder"
)

// supplementInstruction frames the follow-up call for the responder.
const supplementInstruction = "The user is asking you a follow-up question about " +
	"your earlier answer in this conversation. Answer the follow-up directly, " +
	"staying consistent with what you said before."

// Supplement asks a previously-answered speaker a follow-up question outside
// the main sequence. The follow-up is appended to the log parented to the
// speaker's most recent answer, the speaker's supplement counter is
// incremented and the session moves to SUPPLEMENTING for the duration of the
// non-streaming responder call. On success the supplemental answer is
// appended (tagged supplemental, parented to the follow-up) and the session
// settles back in AI_FINISHED or COMPLETED according to its index. On
// failure the counter increment is rolled back and the pre-supplement state
// restored before the error is returned.
//
// Supplements are permitted regardless of CurrentIndex, including after the
// session completed. They are serialized per session: a supplement while the
// session is PAUSED or while any responder call is in flight fails with an
// invalid-transition error.
func (e *SequentialEngine) Supplement(ctx context.Context, sessionID, speakerID, followUp string) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		g.Unlock()
		return nil, err
	}

	sp, ok := s.Speaker(speakerID)
	if !ok {
		g.Unlock()
		return nil, &core.NotFoundError{Kind: "speaker", ID: speakerID}
	}
	switch s.State {
	case core.StatePaused:
		g.Unlock()
		return nil, &core.InvalidTransitionError{Op: "supplement", State: s.State}
	case core.StateAIThinking, core.StateAISpeaking, core.StateSupplementing:
		g.Unlock()
		return nil, &core.InvalidTransitionError{Op: "supplement", State: s.State}
	}

	// Resolve the member's responder before mutating anything so unknown
	// models surface as clean lookup errors instead of rollbacks.
	room, err := e.store.GetRoom(s.RoomID)
	if err != nil {
		g.Unlock()
		return nil, err
	}
	member, ok := room.Member(speakerID)
	if !ok {
		g.Unlock()
		return nil, &core.NotFoundError{Kind: "speaker", ID: speakerID}
	}
	resp, err := e.registry.Get(member.ModelID)
	if err != nil {
		g.Unlock()
		return nil, err
	}

	prevState := s.State
	var priorContent, parentID string
	if answer, ok := s.LastAnswerBy(speakerID); ok {
		priorContent = answer.Content
		parentID = answer.ID
	}

	followUpMsg := core.Message{
		ID:        core.NewID(),
		Role:      "user",
		Content:   followUp,
		SpeakerID: speakerID,
		ParentID:  parentID,
		CreatedAt: nowUTC(),
	}
	s.AddMessage(followUpMsg)
	sp.SupplementCount++
	s.State = core.StateSupplementing
	if err := e.persist(s); err != nil {
		g.Unlock()
		return nil, err
	}
	g.Unlock()

	messages := []core.Message{
		{Role: "system", Content: supplementInstruction},
		{Role: "assistant", Content: priorContent, SpeakerID: speakerID},
		{Role: "user", Content: followUp},
	}

	result, err := resp.Respond(ctx, messages, e.resolveParams(member.Config))
	if err != nil {
		return nil, e.rollbackSupplement(sessionID, speakerID, prevState,
			&core.ResponderError{ModelID: member.ModelID, Err: err})
	}
	return e.finishSupplement(sessionID, speakerID, followUpMsg.ID, result)
}

// finishSupplement appends the supplemental answer and restores the session
// to AI_FINISHED or COMPLETED based on its index.
func (e *SequentialEngine) finishSupplement(sessionID, speakerID, followUpID string, result *responder.Result) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	usage := result.Usage
	s.AddMessage(core.Message{
		ID:           core.NewID(),
		Role:         "assistant",
		Content:      result.Content,
		SpeakerID:    speakerID,
		ParentID:     followUpID,
		Supplemental: true,
		Model:        result.Model,
		Usage:        &usage,
		CreatedAt:    nowUTC(),
	})
	if s.Exhausted() {
		s.State = core.StateCompleted
	} else {
		s.State = core.StateAIFinished
	}
	if err := e.persist(s); err != nil {
		return nil, err
	}

	e.bus.Emit(bus.Event{
		Kind:      bus.KindComplete,
		SessionID: sessionID,
		SpeakerID: speakerID,
		Result:    result,
	})
	e.logger.Info("supplement finished",
		"session_id", sessionID, "speaker_id", speakerID, "state", string(s.State))
	return s.Clone(), nil
}

// rollbackSupplement reverts the speculative counter increment and restores
// the pre-supplement state, then re-raises the cause. The follow-up message
// stays in the append-only log.
func (e *SequentialEngine) rollbackSupplement(sessionID, speakerID string, prevState core.SessionState, cause error) error {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sp, ok := s.Speaker(speakerID); ok {
		sp.SupplementCount--
	}
	s.State = prevState
	if err := e.persist(s); err != nil {
		return err
	}
	e.logger.Warn("supplement rolled back",
		"session_id", sessionID, "speaker_id", speakerID, "error", cause)
	return cause
}
