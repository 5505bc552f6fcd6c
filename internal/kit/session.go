// Package kit hosts Puzzle Kit play sessions: one game store and one
// navigation store per session, kept in a bounded LRU.
package kit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/game"
	"github.com/p-blackswan/playcraft/internal/navigation"
	"github.com/p-blackswan/playcraft/lru"
)

// Session is a single player's Puzzle Kit state.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Game       *game.Store
	Navigation *navigation.Store
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Game       *game.State       `json:"game"`
	Navigation *navigation.State `json:"navigation"`
}

// Snapshot captures the current state of both stores.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		Game:       s.Game.GetState(),
		Navigation: s.Navigation.GetState(),
	}
}

// Registry keeps the most recently used sessions.
type Registry struct {
	cfg      game.Config
	sessions *lru.Cache[string, *Session]
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRegistry creates a registry holding at most capacity sessions.
func NewRegistry(capacity int, cfg game.Config, logger zerolog.Logger) *Registry {
	r := &Registry{
		cfg:      cfg,
		sessions: lru.New[string, *Session](capacity),
		now:      time.Now,
		logger:   logger.With().Str("component", "kit").Logger(),
	}
	r.sessions.OnEvict(func(id string, _ *Session) {
		r.logger.Debug().Str("session_id", id).Msg("session evicted")
	})
	return r
}

// Create starts a session and runs its client-side initialisation.
func (r *Registry) Create() *Session {
	now := r.now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		Game:       game.NewStore(r.cfg, game.WithClock(r.now)),
		Navigation: navigation.NewStore(),
	}
	s.Game.Initialize(now)
	r.sessions.Put(s.ID, s)
	r.logger.Debug().Str("session_id", s.ID).Msg("session created")
	return s
}

// Get returns the session with id, if it is still held.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Get(id)
}

// Delete drops a session and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	return r.sessions.Delete(id)
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
