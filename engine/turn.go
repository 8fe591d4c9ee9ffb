package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MissChina/ai-chat/bus"
	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/responder"
)

// preambleRuneLimit bounds how much of each prior answer is quoted in the
// system-prompt preamble handed to the next speaker.
const preambleRuneLimit = 180

func nowUTC() time.Time { return time.Now().UTC() }

// startTurn marks the current speaker speaking and walks the session through
// AI_THINKING to AI_SPEAKING, persisting each step. The caller must hold the
// session guard and have verified a speaker remains; once the guard is
// released, commands landing before the turn settles observe the persisted
// in-flight state and are rejected. It returns the speaking member's id.
func (e *SequentialEngine) startTurn(s *core.Session) (string, error) {
	sp, _ := s.CurrentSpeaker()
	start := nowUTC()
	sp.Status = core.SpeakerSpeaking
	sp.StartedAt = &start

	s.State = core.StateAIThinking
	if err := e.persist(s); err != nil {
		return "", err
	}
	s.State = core.StateAISpeaking
	if err := e.persist(s); err != nil {
		return "", err
	}
	return sp.MemberID, nil
}

// runTurn executes the responder call for a turn already walked to
// AI_SPEAKING, streams the answer as chunk events and records the outcome:
// AI_FINISHED (or COMPLETED when no speakers remain) on success, terminal
// ERROR on failure.
func (e *SequentialEngine) runTurn(ctx context.Context, s *core.Session, speakerID string) error {
	result, err := e.callSpeaker(ctx, s, speakerID)
	if err != nil {
		return e.failTurn(s.ID, speakerID, err)
	}
	return e.finishTurn(s.ID, speakerID, result)
}

// callSpeaker resolves the room member and its responder, builds the prompt
// and runs the streaming call, forwarding well-formed fragments as chunk
// events. No session guard is held while the call is in flight.
func (e *SequentialEngine) callSpeaker(ctx context.Context, s *core.Session, speakerID string) (*responder.Result, error) {
	room, err := e.store.GetRoom(s.RoomID)
	if err != nil {
		return nil, err
	}
	member, ok := room.Member(speakerID)
	if !ok {
		return nil, &core.NotFoundError{Kind: "speaker", ID: speakerID}
	}
	resp, err := e.registry.Get(member.ModelID)
	if err != nil {
		return nil, err
	}

	messages := buildTurnMessages(room, member, s)
	params := e.resolveParams(member.Config)

	e.logger.Debug("turn started",
		"session_id", s.ID, "speaker_id", speakerID, "model_id", member.ModelID)

	result, err := resp.RespondStream(ctx, messages, params, func(c responder.Chunk) {
		if !c.Done && c.Content == "" {
			e.logger.Warn("skipping malformed chunk",
				"session_id", s.ID, "speaker_id", speakerID, "chunk_id", c.ID, "index", c.Index)
			return
		}
		chunk := c
		e.bus.Emit(bus.Event{
			Kind:      bus.KindChunk,
			SessionID: s.ID,
			SpeakerID: speakerID,
			Chunk:     &chunk,
		})
	})
	if err != nil {
		return nil, &core.ResponderError{ModelID: member.ModelID, Err: err}
	}
	return result, nil
}

// finishTurn records a successful answer: appends the assistant message,
// marks the speaker finished, advances the index and settles in AI_FINISHED
// or COMPLETED.
func (e *SequentialEngine) finishTurn(sessionID, speakerID string, result *responder.Result) error {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return err
	}

	usage := result.Usage
	s.AddMessage(core.Message{
		ID:        core.NewID(),
		Role:      "assistant",
		Content:   result.Content,
		SpeakerID: speakerID,
		Model:     result.Model,
		Usage:     &usage,
		CreatedAt: nowUTC(),
	})

	if sp, ok := s.Speaker(speakerID); ok {
		end := nowUTC()
		sp.Status = core.SpeakerFinished
		sp.FinishedAt = &end
	}
	s.CurrentIndex++
	if s.Exhausted() {
		s.State = core.StateCompleted
	} else {
		s.State = core.StateAIFinished
	}
	if err := e.persist(s); err != nil {
		return err
	}

	e.bus.Emit(bus.Event{
		Kind:      bus.KindComplete,
		SessionID: sessionID,
		SpeakerID: speakerID,
		Result:    result,
	})
	e.logger.Info("turn finished",
		"session_id", sessionID, "speaker_id", speakerID,
		"current_index", s.CurrentIndex, "state", string(s.State))
	return nil
}

// failTurn transitions the session to terminal ERROR and re-raises the
// responder failure.
func (e *SequentialEngine) failTurn(sessionID, speakerID string, cause error) error {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	s.State = core.StateError
	if err := e.persist(s); err != nil {
		return err
	}
	e.logger.Error("turn failed",
		"session_id", sessionID, "speaker_id", speakerID, "error", cause)
	return cause
}

// resolveParams merges a member config with the engine defaults.
func (e *SequentialEngine) resolveParams(cfg core.MemberConfig) responder.Params {
	params := responder.Params{
		MaxTokens:     e.defaults.MaxTokens,
		Temperature:   e.defaults.Temperature,
		ResponseStyle: e.defaults.ResponseStyle,
	}
	if cfg.MaxTokens != nil {
		params.MaxTokens = *cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		params.Temperature = *cfg.Temperature
	}
	if cfg.ResponseStyle != "" {
		params.ResponseStyle = cfg.ResponseStyle
	}
	return params
}

// buildTurnMessages assembles the prompt for a main turn: the member's
// system prompt extended with a preamble quoting each prior contribution
// truncated to its first ~180 characters, followed by the original question.
func buildTurnMessages(room *core.Room, member core.RoomMember, s *core.Session) []core.Message {
	var sys strings.Builder
	if member.Config.SystemPrompt != "" {
		sys.WriteString(member.Config.SystemPrompt)
	}

	prior := s.AssistantMessages()
	if len(prior) > 0 {
		if sys.Len() > 0 {
			sys.WriteString("\n\n")
		}
		sys.WriteString("Earlier speakers already contributed:\n")
		for _, m := range prior {
			name := m.SpeakerID
			if mem, ok := room.Member(m.SpeakerID); ok {
				name = mem.DisplayName
			}
			fmt.Fprintf(&sys, "- %s: %s\n", name, truncateRunes(m.Content, preambleRuneLimit))
		}
		sys.WriteString("Add your own perspective without repeating them.")
	}

	var messages []core.Message
	if sys.Len() > 0 {
		messages = append(messages, core.Message{Role: "system", Content: sys.String()})
	}
	messages = append(messages, core.Message{Role: "user", Content: s.Question})
	return messages
}

// truncateRunes shortens s to at most limit runes, appending an ellipsis
// when content was dropped.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
