package responder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MissChina/ai-chat/core"
)

// MockResponder is a lightweight in-memory Responder useful for tests and
// examples. It answers with canned completions keyed by the content of the
// last message, streams rune-sized fragments, and can be armed to fail.
type MockResponder struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	err       error
	calls     int
}

// NewMockResponder constructs a MockResponder with streaming support
// enabled.
func NewMockResponder(modelID, displayName string) *MockResponder {
	return &MockResponder{
		info:      Info{ModelID: modelID, DisplayName: displayName, SupportsStreaming: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input
// prompt.
func (m *MockResponder) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith arms the responder to fail every subsequent call with err. Pass
// nil to disarm.
func (m *MockResponder) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many generation calls were made.
func (m *MockResponder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Info implements Responder.
func (m *MockResponder) Info() Info { return m.info }

// Respond implements Responder.
func (m *MockResponder) Respond(ctx context.Context, messages []core.Message, params Params) (*Result, error) {
	return m.generate(ctx, messages, nil)
}

// RespondStream implements Responder; emits one chunk per rune followed by a
// terminal Done chunk.
func (m *MockResponder) RespondStream(ctx context.Context, messages []core.Message, params Params, onChunk ChunkHandler) (*Result, error) {
	return m.generate(ctx, messages, onChunk)
}

func (m *MockResponder) generate(ctx context.Context, messages []core.Message, onChunk ChunkHandler) (*Result, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	full, ok := m.responses[prompt]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", prompt)
	}

	id := core.NewID()
	if onChunk != nil {
		for i, r := range []rune(full) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			onChunk(Chunk{ID: id, Model: m.info.ModelID, Index: i, Content: string(r), CreatedAt: time.Now().UTC()})
		}
		onChunk(Chunk{ID: id, Model: m.info.ModelID, Index: len([]rune(full)), Done: true, CreatedAt: time.Now().UTC()})
	}

	return &Result{
		ID:        id,
		Model:     m.info.ModelID,
		Content:   full,
		CreatedAt: time.Now().UTC(),
		Usage: core.Usage{
			InputTokens:  len(strings.Fields(prompt)),
			OutputTokens: len(strings.Fields(full)),
		},
	}, nil
}
