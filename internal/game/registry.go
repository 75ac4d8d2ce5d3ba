package game

import (
	"fmt"
	"sync"
)

// Registry manages game registration and lookup.
// It is safe for concurrent use and lists games in registration order.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Info
	order []string
}

// NewRegistry creates an empty game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Info),
	}
}

// NewDefaultRegistry creates a registry holding the built-in mini-games.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, g := range builtin {
		_ = r.Register(g)
	}
	return r
}

// Register adds a game to the registry.
// If a game with the same id already exists, it is replaced in place.
func (r *Registry) Register(g Info) error {
	if g.ID == "" {
		return fmt.Errorf("game id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.ID]; !ok {
		r.order = append(r.order, g.ID)
	}
	r.games[g.ID] = g
	return nil
}

// Get retrieves a game by id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	return g, ok
}

// Has reports whether id names a registered game.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// List returns all registered games in registration order.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		games = append(games, r.games[id])
	}
	return games
}

// IDs returns all registered game ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
