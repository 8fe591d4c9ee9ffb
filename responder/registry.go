package responder

import (
	"sync"

	"github.com/MissChina/ai-chat/core"
)

// Registry maps model identifiers to Responder implementations. It is
// constructed once, populated during wiring and injected into the engine,
// replacing any notion of a process-wide adapter cache. Safe for concurrent
// use.
type Registry struct {
	mu         sync.RWMutex
	responders map[string]Responder
}

// NewRegistry constructs a registry, optionally pre-registering responders.
func NewRegistry(responders ...Responder) *Registry {
	r := &Registry{responders: make(map[string]Responder)}
	for _, resp := range responders {
		r.Register(resp)
	}
	return r
}

// Register adds a responder under its model id, replacing any previous
// registration for the same id.
func (r *Registry) Register(resp Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders[resp.Info().ModelID] = resp
}

// Get returns the responder registered for the given model id. Unknown ids
// yield an error matching core.ErrNotFound.
func (r *Registry) Get(modelID string) (Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responders[modelID]
	if !ok {
		return nil, &core.NotFoundError{Kind: "responder", ID: modelID}
	}
	return resp, nil
}

// ModelIDs returns the registered model ids in unspecified order.
func (r *Registry) ModelIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.responders))
	for id := range r.responders {
		ids = append(ids, id)
	}
	return ids
}
