// Package anthropic implements responder.Responder on top of the Anthropic
// Messages API, supporting both full and incrementally streamed answers.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/responder"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultMaxTokens applies when the caller leaves max tokens unset; the
// Messages API requires an explicit value.
const defaultMaxTokens = 1024

// Options configure the Anthropic responder.
type Options struct {
	Model       anthropic.Model
	DisplayName string
	APIKey      string
}

// Responder wraps the Anthropic Messages API behind the generic
// responder.Responder interface.
type Responder struct {
	client *anthropic.Client
	opts   Options
}

// NewResponder creates an Anthropic responder using the official client.
func NewResponder(optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		DisplayName: "Claude",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Responder{client: &client, opts: opts}
}

// NewResponderFromClient creates an Anthropic responder from an existing
// client.
func NewResponderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		DisplayName: "Claude",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

// Info implements responder.Responder.
func (r *Responder) Info() responder.Info {
	return responder.Info{
		ModelID:           string(r.opts.Model),
		DisplayName:       r.opts.DisplayName,
		SupportsStreaming: true,
	}
}

// Respond implements responder.Responder with a single non-streaming call.
func (r *Responder) Respond(ctx context.Context, messages []core.Message, params responder.Params) (*responder.Result, error) {
	resp, err := r.client.Messages.New(ctx, r.buildParams(messages, params))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.AsText().Text)
		}
	}

	return &responder.Result{
		ID:        resp.ID,
		Model:     string(resp.Model),
		Content:   builder.String(),
		CreatedAt: time.Now().UTC(),
		Usage: core.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// RespondStream implements responder.Responder, forwarding text deltas as
// chunks and closing the turn with a Done chunk.
func (r *Responder) RespondStream(ctx context.Context, messages []core.Message, params responder.Params, onChunk responder.ChunkHandler) (*responder.Result, error) {
	stream := r.client.Messages.NewStreaming(ctx, r.buildParams(messages, params))

	var accumulated anthropic.Message
	index := 0
	for stream.Next() {
		event := stream.Current()
		if err := accumulated.Accumulate(event); err != nil {
			return nil, fmt.Errorf("anthropic stream accumulation error: %w", err)
		}
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				if onChunk != nil {
					onChunk(responder.Chunk{
						ID:        accumulated.ID,
						Model:     string(r.opts.Model),
						Index:     index,
						Content:   delta.Text,
						CreatedAt: time.Now().UTC(),
					})
				}
				index++
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic streaming error: %w", err)
	}

	if onChunk != nil {
		onChunk(responder.Chunk{
			ID:        accumulated.ID,
			Model:     string(r.opts.Model),
			Index:     index,
			Done:      true,
			CreatedAt: time.Now().UTC(),
		})
	}

	var builder strings.Builder
	for _, block := range accumulated.Content {
		if block.Type == "text" {
			builder.WriteString(block.AsText().Text)
		}
	}

	return &responder.Result{
		ID:        accumulated.ID,
		Model:     string(r.opts.Model),
		Content:   builder.String(),
		CreatedAt: time.Now().UTC(),
		Usage: core.Usage{
			InputTokens:  int(accumulated.Usage.InputTokens),
			OutputTokens: int(accumulated.Usage.OutputTokens),
		},
	}, nil
}

// buildParams assembles the request, applying provider defaults for options
// the caller left unset.
func (r *Responder) buildParams(messages []core.Message, params responder.Params) anthropic.MessageNewParams {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqParams := anthropic.MessageNewParams{
		Model:     r.opts.Model,
		MaxTokens: maxTokens,
		Messages:  buildMessages(messages),
	}
	if params.Temperature > 0 {
		reqParams.Temperature = anthropic.Float(params.Temperature)
	}
	if system := buildSystem(messages, params.ResponseStyle); len(system) > 0 {
		reqParams.System = system
	}
	return reqParams
}

// buildMessages converts user/assistant messages into Anthropic message
// params; system entries are carried separately by buildSystem.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			continue
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// buildSystem collects system messages into system blocks, appending the
// response style, when set, as an extra instruction.
func buildSystem(messages []core.Message, style string) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == "system" && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	if style != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: fmt.Sprintf("Respond in a %s style.", style)})
	}
	return blocks
}
