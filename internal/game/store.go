// internal/game/store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps the live games of this process, keyed by game ID.
type Store struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Game
}

func NewStore() *Store {
	return &Store{
		games: make(map[uuid.UUID]*Game),
	}
}

// Create builds a game from cfg and adds it to the store.
func (s *Store) Create(cfg Config) *Game {
	g := New(cfg)
	s.Add(g)
	return g
}

func (s *Store) Add(g *Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

func (s *Store) Get(id uuid.UUID) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

// Delete removes a game and stops its timer.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	g, ok := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()

	if ok {
		g.timer.Stop()
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}
