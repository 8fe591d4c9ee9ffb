package engine

import (
	"context"
	"sync"

	"github.com/MissChina/ai-chat/bus"
	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/logging"
	"github.com/MissChina/ai-chat/responder"
	"github.com/MissChina/ai-chat/session"
)

// Defaults are the generation settings applied when a room member's config
// leaves an option unset.
type Defaults struct {
	MaxTokens     int64
	Temperature   float64
	ResponseStyle string
}

// DefaultDefaults is the baseline fallback configuration.
var DefaultDefaults = Defaults{
	MaxTokens:     2048,
	Temperature:   0.7,
	ResponseStyle: "balanced",
}

// Options configures a SequentialEngine using the functional options
// pattern. Unset services fall back to in-memory implementations so the
// engine is usable without external wiring.
type Options struct {
	// Store is the single source of truth for rooms and sessions.
	// Defaults to an in-memory implementation.
	Store core.SessionStore

	// Registry maps model ids to responder implementations. Defaults to an
	// empty registry; sessions whose members reference unregistered models
	// fail their turn with a not-found responder error.
	Registry *responder.Registry

	// Bus receives state, chunk and complete events. Defaults to a fresh
	// EventBus.
	Bus *bus.EventBus

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Defaults supply fallback generation settings for members whose
	// config leaves options unset.
	Defaults Defaults
}

// WithStore overrides the session store.
func WithStore(store core.SessionStore) func(o *Options) {
	return func(o *Options) { o.Store = store }
}

// WithRegistry overrides the responder registry.
func WithRegistry(registry *responder.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = registry }
}

// WithBus overrides the event bus.
func WithBus(b *bus.EventBus) func(o *Options) {
	return func(o *Options) { o.Bus = b }
}

// WithLogger overrides the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithDefaults overrides the fallback generation settings.
func WithDefaults(d Defaults) func(o *Options) {
	return func(o *Options) { o.Defaults = d }
}

// SequentialEngine is the turn-sequencing state machine. All methods are
// safe for concurrent use; per-session invariants are enforced by the state
// machine itself, so commands against different sessions never contend.
type SequentialEngine struct {
	store    core.SessionStore
	registry *responder.Registry
	bus      *bus.EventBus
	logger   logging.Logger
	defaults Defaults

	mu     sync.Mutex
	guards map[string]*sync.Mutex
}

// New constructs a SequentialEngine with optional overrides.
func New(optFns ...func(o *Options)) *SequentialEngine {
	opts := Options{
		Store:    session.NewInMemoryStore(),
		Registry: responder.NewRegistry(),
		Bus:      bus.New(),
		Logger:   logging.NoOpLogger{},
		Defaults: DefaultDefaults,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &SequentialEngine{
		store:    opts.Store,
		registry: opts.Registry,
		bus:      opts.Bus,
		logger:   opts.Logger,
		defaults: opts.Defaults,
		guards:   make(map[string]*sync.Mutex),
	}
}

// Store returns the session store backing this engine.
func (e *SequentialEngine) Store() core.SessionStore { return e.store }

// Bus returns the event bus this engine emits on.
func (e *SequentialEngine) Bus() *bus.EventBus { return e.bus }

// guard returns the per-session mutex, creating it on first use. Guards are
// held only for check-and-set sections, never across responder calls.
func (e *SequentialEngine) guard(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guards[sessionID]
	if !ok {
		g = &sync.Mutex{}
		e.guards[sessionID] = g
	}
	return g
}

// persist writes the session back and emits a state event carrying a fresh
// snapshot. The write always precedes the emit so subscribers never observe
// an event ahead of the store.
func (e *SequentialEngine) persist(s *core.Session) error {
	s.Touch()
	if err := e.store.SaveSession(s); err != nil {
		return err
	}
	e.bus.Emit(bus.Event{Kind: bus.KindState, SessionID: s.ID, Session: s.Clone()})
	return nil
}

// StartSession builds a session over the room's enabled members, persists it
// in INITIALIZING state, emits the first state event and starts the first
// turn. The session is walked through AI_THINKING to AI_SPEAKING before the
// call returns, so commands issued afterwards observe the in-flight turn;
// only the responder call itself runs in the background. The returned
// snapshot is taken immediately after creation. A session with zero enabled
// speakers completes on the spot.
func (e *SequentialEngine) StartSession(ctx context.Context, roomID, userID, question string) (*core.Session, error) {
	room, err := e.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	s := core.NewSession(room, userID, question)

	g := e.guard(s.ID)
	g.Lock()
	if err := e.persist(s); err != nil {
		g.Unlock()
		return nil, err
	}
	snapshot := s.Clone()

	e.logger.Info("session started",
		"session_id", s.ID, "room_id", roomID, "speakers", len(s.Speakers))

	if s.Exhausted() {
		s.State = core.StateCompleted
		err := e.persist(s)
		g.Unlock()
		if err != nil {
			return nil, err
		}
		return snapshot, nil
	}

	speakerID, err := e.startTurn(s)
	if err != nil {
		g.Unlock()
		return nil, err
	}
	g.Unlock()

	// The responder call is detached from the caller's cancellation;
	// failures surface as a terminal ERROR state observable via the state
	// event.
	go func() {
		if err := e.runTurn(context.WithoutCancel(ctx), s, speakerID); err != nil {
			e.logger.Error("initial turn failed", "session_id", s.ID, "error", err)
		}
	}()

	return snapshot, nil
}

// Session returns the current snapshot of a session.
func (e *SequentialEngine) Session(sessionID string) (*core.Session, error) {
	return e.store.GetSession(sessionID)
}

// Next triggers the next speaker's turn. It fails with an invalid-transition
// error unless the session is AI_FINISHED. When speakers remain the session
// is walked to AI_SPEAKING before Next returns, so concurrent Next or Skip
// calls observe the in-flight turn and are rejected; only the responder call
// runs in the background. When no speakers remain the session completes
// immediately. The returned snapshot reflects the persisted transition.
func (e *SequentialEngine) Next(ctx context.Context, sessionID string) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		g.Unlock()
		return nil, err
	}
	if s.State != core.StateAIFinished {
		g.Unlock()
		return nil, &core.InvalidTransitionError{Op: "next", State: s.State}
	}

	if s.Exhausted() {
		s.State = core.StateCompleted
		err := e.persist(s)
		g.Unlock()
		if err != nil {
			return nil, err
		}
		return s.Clone(), nil
	}

	speakerID, err := e.startTurn(s)
	if err != nil {
		g.Unlock()
		return nil, err
	}
	snapshot := s.Clone()
	g.Unlock()

	go func() {
		if err := e.runTurn(context.WithoutCancel(ctx), s, speakerID); err != nil {
			e.logger.Error("turn failed", "session_id", sessionID, "error", err)
		}
	}()

	return snapshot, nil
}

// Pause suspends turn advancement between turns, preserving all progress.
// Only an AI_FINISHED session can pause; a terminal session or one with a
// responder call in flight fails with an invalid-transition error. Pausing
// an already paused session is an idempotent no-op returning the unchanged
// snapshot.
func (e *SequentialEngine) Pause(sessionID string) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	if s.State == core.StatePaused {
		return s, nil
	}
	if s.State != core.StateAIFinished {
		return nil, &core.InvalidTransitionError{Op: "pause", State: s.State}
	}

	s.State = core.StatePaused
	if err := e.persist(s); err != nil {
		return nil, err
	}
	e.logger.Info("session paused", "session_id", sessionID)
	return s.Clone(), nil
}

// Resume lifts a pause, transitioning to AI_FINISHED when speakers remain or
// COMPLETED otherwise. It does not trigger the next turn; advancement stays
// explicit via Next.
func (e *SequentialEngine) Resume(sessionID string) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != core.StatePaused {
		return nil, &core.InvalidTransitionError{Op: "resume", State: s.State}
	}

	if s.Exhausted() {
		s.State = core.StateCompleted
	} else {
		s.State = core.StateAIFinished
	}
	if err := e.persist(s); err != nil {
		return nil, err
	}
	e.logger.Info("session resumed", "session_id", sessionID, "state", string(s.State))
	return s.Clone(), nil
}

// Skip marks the current speaker skipped and advances past it. It fails with
// an invalid-transition error unless the session is AI_FINISHED.
func (e *SequentialEngine) Skip(sessionID string) (*core.Session, error) {
	g := e.guard(sessionID)
	g.Lock()
	defer g.Unlock()

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.State != core.StateAIFinished {
		return nil, &core.InvalidTransitionError{Op: "skip", State: s.State}
	}

	if sp, ok := s.CurrentSpeaker(); ok {
		now := nowUTC()
		sp.Status = core.SpeakerSkipped
		sp.FinishedAt = &now
		s.CurrentIndex++
	}
	if s.Exhausted() {
		s.State = core.StateCompleted
	}
	if err := e.persist(s); err != nil {
		return nil, err
	}
	e.logger.Info("speaker skipped",
		"session_id", sessionID, "current_index", s.CurrentIndex, "state", string(s.State))
	return s.Clone(), nil
}
