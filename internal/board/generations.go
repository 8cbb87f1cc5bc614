package board

import "sync"

// Generations hands out increasing tokens per key. Only the most recently
// issued token for a key is current.
type Generations struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewGenerations() *Generations {
	return &Generations{latest: make(map[string]uint64)}
}

// Begin starts a new fetch for key and returns its token.
func (g *Generations) Begin(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[key]++
	return g.latest[key]
}

// Current reports whether token is still the latest for key.
func (g *Generations) Current(key string, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[key] == token
}
