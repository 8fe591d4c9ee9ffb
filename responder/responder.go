// Package responder defines the contract between the engine and the external
// AI answer generators, plus an explicit registry mapping model identifiers
// to responder implementations. Provider-specific adapters live in the
// subpackages openai and anthropic; MockResponder backs tests and examples.
package responder

import (
	"context"
	"time"

	"github.com/MissChina/ai-chat/core"
)

// Params carries the generation settings for a single call. Zero values mean
// "unset"; adapters apply their own defaults for absent options.
type Params struct {
	MaxTokens     int64   `json:"max_tokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	ResponseStyle string  `json:"response_style,omitempty"`
}

// Result is the completed answer of a responder call.
type Result struct {
	ID        string     `json:"id"`
	Model     string     `json:"model"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	Usage     core.Usage `json:"usage"`
}

// Chunk is one incremental content fragment of a streaming call. The final
// chunk of a turn carries Done = true and empty Content.
type Chunk struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkHandler receives streaming fragments in emission order.
type ChunkHandler func(chunk Chunk)

// Info contains identity metadata of a responder implementation.
type Info struct {
	ModelID           string `json:"model_id"`
	DisplayName       string `json:"display_name"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Responder produces a full or incrementally streamed answer for an ordered
// list of conversation messages. Implementations own their timeout policy;
// the engine imposes none.
type Responder interface {
	// Info returns identity metadata for this responder.
	Info() Info

	// Respond generates a complete answer in one call.
	Respond(ctx context.Context, messages []core.Message, params Params) (*Result, error)

	// RespondStream generates an answer while invoking onChunk zero or more
	// times with incremental fragments before returning the full result.
	RespondStream(ctx context.Context, messages []core.Message, params Params, onChunk ChunkHandler) (*Result, error)
}
