// Package openai implements responder.Responder on top of the OpenAI Chat
// Completions API, supporting both full and incrementally streamed answers.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/responder"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI responder. Fields mirror a small subset of
// Chat Completion parameters; per-call settings arrive via responder.Params.
type Options struct {
	Model       string
	DisplayName string
}

// Responder wraps the OpenAI Chat Completions API behind the generic
// responder.Responder interface.
type Responder struct {
	client *openai.Client
	opts   Options
}

// NewResponder creates an OpenAI responder using the official client with
// environment-based credentials.
func NewResponder(optFns ...func(o *Options)) *Responder {
	client := openai.NewClient()
	return NewResponderFromClient(&client, optFns...)
}

// NewResponderFromClient creates an OpenAI responder from an existing client.
func NewResponderFromClient(client *openai.Client, optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		DisplayName: "OpenAI",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

// Info implements responder.Responder.
func (r *Responder) Info() responder.Info {
	return responder.Info{
		ModelID:           r.opts.Model,
		DisplayName:       r.opts.DisplayName,
		SupportsStreaming: true,
	}
}

// Respond implements responder.Responder with a single non-streaming call.
func (r *Responder) Respond(ctx context.Context, messages []core.Message, params responder.Params) (*responder.Result, error) {
	resp, err := r.client.Chat.Completions.New(ctx, r.buildParams(messages, params))
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned no choices")
	}
	return &responder.Result{
		ID:        resp.ID,
		Model:     resp.Model,
		Content:   resp.Choices[0].Message.Content,
		CreatedAt: time.Unix(resp.Created, 0).UTC(),
		Usage: core.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// RespondStream implements responder.Responder, forwarding content deltas as
// chunks and closing the turn with a Done chunk.
func (r *Responder) RespondStream(ctx context.Context, messages []core.Message, params responder.Params, onChunk responder.ChunkHandler) (*responder.Result, error) {
	reqParams := r.buildParams(messages, params)
	reqParams.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := r.client.Chat.Completions.NewStreaming(ctx, reqParams)
	var (
		builder strings.Builder
		id      string
		model   string
		usage   core.Usage
		index   int
	)
	for stream.Next() {
		ck := stream.Current()
		if ck.ID != "" {
			id = ck.ID
		}
		if ck.Model != "" {
			model = ck.Model
		}
		if ck.Usage.TotalTokens > 0 {
			usage.InputTokens = int(ck.Usage.PromptTokens)
			usage.OutputTokens = int(ck.Usage.CompletionTokens)
		}
		for _, choice := range ck.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			builder.WriteString(choice.Delta.Content)
			if onChunk != nil {
				onChunk(responder.Chunk{
					ID:        ck.ID,
					Model:     model,
					Index:     index,
					Content:   choice.Delta.Content,
					CreatedAt: time.Now().UTC(),
				})
			}
			index++
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai streaming error: %w", err)
	}
	if onChunk != nil {
		onChunk(responder.Chunk{ID: id, Model: model, Index: index, Done: true, CreatedAt: time.Now().UTC()})
	}
	if model == "" {
		model = r.opts.Model
	}
	return &responder.Result{
		ID:        id,
		Model:     model,
		Content:   builder.String(),
		CreatedAt: time.Now().UTC(),
		Usage:     usage,
	}, nil
}

// buildParams assembles the request, applying provider defaults for options
// the caller left unset.
func (r *Responder) buildParams(messages []core.Message, params responder.Params) openai.ChatCompletionNewParams {
	reqParams := openai.ChatCompletionNewParams{
		Messages: buildMessages(messages, params.ResponseStyle),
		Model:    r.opts.Model,
	}
	if params.Temperature > 0 {
		reqParams.Temperature = openai.Float(params.Temperature)
	}
	if params.MaxTokens > 0 {
		reqParams.MaxCompletionTokens = openai.Int(params.MaxTokens)
	}
	return reqParams
}

// buildMessages converts conversation messages into OpenAI chat messages.
// A response style, when set, is appended as an extra system instruction.
func buildMessages(messages []core.Message, style string) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	if style != "" {
		out = append(out, openai.SystemMessage(fmt.Sprintf("Respond in a %s style.", style)))
	}
	return out
}
