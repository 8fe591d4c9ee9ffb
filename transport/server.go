// Package transport exposes the engine's public operations and event feed
// over HTTP. Commands are plain JSON endpoints; session progress streams
// over Server-Sent Events. The transport owns the subscription contract of
// the event feed: every new SSE subscriber first receives one synthetic
// state event carrying the current snapshot before engine-emitted events are
// forwarded.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/engine"
	"github.com/MissChina/ai-chat/logging"
)

// Options configures a Server.
type Options struct {
	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Server adapts a SequentialEngine to HTTP. It holds no state of its own;
// all reads go through the engine's store so responses always reflect the
// latest persisted snapshot.
type Server struct {
	engine *engine.SequentialEngine
	logger logging.Logger
}

// NewServer constructs a Server around an engine.
func NewServer(eng *engine.SequentialEngine, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{engine: eng, logger: opts.Logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/next", s.handleNext)
	mux.HandleFunc("POST /api/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/sessions/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /api/sessions/{id}/skip", s.handleSkip)
	mux.HandleFunc("POST /api/sessions/{id}/supplement", s.handleSupplement)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)
	return mux
}

type startSessionRequest struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type supplementRequest struct {
	SpeakerID string `json:"speaker_id"`
	Question  string `json:"question"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room core.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := s.engine.Store().CreateRoom(&room)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.engine.Store().ListRooms(r.URL.Query().Get("owner_id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.engine.Store().GetRoom(r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.RoomID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, errors.New("room_id and question are required"))
		return
	}
	sess, err := s.engine.StartSession(r.Context(), req.RoomID, req.UserID, req.Question)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.Store().ListSessions(r.URL.Query().Get("room_id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Next(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Pause(r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Resume(r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Skip(r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSupplement(w http.ResponseWriter, r *http.Request) {
	var req supplementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SpeakerID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, errors.New("speaker_id and question are required"))
		return
	}
	sess, err := s.engine.Supplement(r.Context(), r.PathValue("id"), req.SpeakerID, req.Question)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// writeEngineError maps the closed error taxonomy onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrResponder):
		writeError(w, http.StatusBadGateway, err)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
