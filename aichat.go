// Package aichat provides a high-level façade over the sequential
// turn-sequencing engine and its service abstractions (session store,
// responder registry, event bus and logging). Most applications interact
// with this package by:
//  1. Creating a Chat via New() (optionally overriding default in-memory services)
//  2. Registering one responder per model id used by their rooms
//  3. Creating a room and starting sessions, observing progress via Subscribe
//
// The façade delegates orchestration to engine.SequentialEngine while
// keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply a
// durable store implementation and a structured logger.
package aichat

import (
	"context"

	"github.com/MissChina/ai-chat/bus"
	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/engine"
	"github.com/MissChina/ai-chat/logging"
	"github.com/MissChina/ai-chat/responder"
	"github.com/MissChina/ai-chat/session"
)

// Options configures the Chat instance.
type Options struct {
	// Store persists rooms and sessions (defaults to in-memory).
	Store core.SessionStore

	// Registry maps model ids to responders (defaults to empty).
	Registry *responder.Registry

	// Bus receives state, chunk and complete events (defaults to a fresh bus).
	Bus *bus.EventBus

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// Defaults supply fallback generation settings.
	Defaults engine.Defaults
}

// Chat is the high-level façade aggregating the engine and its services.
type Chat struct {
	opts   Options
	engine *engine.SequentialEngine
}

// New creates a Chat instance with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Chat {
	opts := Options{
		Store:    session.NewInMemoryStore(),
		Registry: responder.NewRegistry(),
		Bus:      bus.New(),
		Logger:   logging.NoOpLogger{},
		Defaults: engine.DefaultDefaults,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(
		engine.WithStore(opts.Store),
		engine.WithRegistry(opts.Registry),
		engine.WithBus(opts.Bus),
		engine.WithLogger(opts.Logger),
		engine.WithDefaults(opts.Defaults),
	)

	return &Chat{opts: opts, engine: eng}
}

// Engine exposes the underlying SequentialEngine.
func (c *Chat) Engine() *engine.SequentialEngine { return c.engine }

// RegisterResponder adds a responder under its model id.
func (c *Chat) RegisterResponder(r responder.Responder) { c.opts.Registry.Register(r) }

// CreateRoom persists a room through the configured store.
func (c *Chat) CreateRoom(room *core.Room) (*core.Room, error) {
	return c.opts.Store.CreateRoom(room)
}

// StartSession starts a sequential run over the room's enabled members.
func (c *Chat) StartSession(ctx context.Context, roomID, userID, question string) (*core.Session, error) {
	return c.engine.StartSession(ctx, roomID, userID, question)
}

// Session returns the current snapshot of a session.
func (c *Chat) Session(sessionID string) (*core.Session, error) {
	return c.engine.Session(sessionID)
}

// Next triggers the next speaker's turn.
func (c *Chat) Next(ctx context.Context, sessionID string) (*core.Session, error) {
	return c.engine.Next(ctx, sessionID)
}

// Pause suspends turn advancement.
func (c *Chat) Pause(sessionID string) (*core.Session, error) {
	return c.engine.Pause(sessionID)
}

// Resume lifts a pause.
func (c *Chat) Resume(sessionID string) (*core.Session, error) {
	return c.engine.Resume(sessionID)
}

// Skip skips the current speaker.
func (c *Chat) Skip(sessionID string) (*core.Session, error) {
	return c.engine.Skip(sessionID)
}

// Supplement asks a previously-answered speaker a follow-up question.
func (c *Chat) Supplement(ctx context.Context, sessionID, speakerID, question string) (*core.Session, error) {
	return c.engine.Supplement(ctx, sessionID, speakerID, question)
}

// Subscribe attaches a listener to a session's event feed and returns its
// unsubscribe function.
func (c *Chat) Subscribe(sessionID string, listener bus.Listener) func() {
	return c.opts.Bus.Subscribe(sessionID, listener)
}
