package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/p-blackswan/playcraft/internal/statecontainer"
)

// Listener observes committed game state transitions.
type Listener = statecontainer.Listener[*State, Action]

// Store hosts one game state. It starts from Placeholder and is filled in by
// Initialize once a client context (a clock and an id source) exists.
type Store struct {
	c     *statecontainer.Container[*State, Action]
	cfg   Config
	newID func() string
	now   func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDs overrides the inbox id source (uuid by default).
func WithIDs(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the clock used to stamp daily reward claims.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) { s.now = fn }
}

// NewStore creates a store in the placeholder state.
func NewStore(cfg Config, opts ...StoreOption) *Store {
	s := &Store{
		c:     statecontainer.New(Placeholder(), Reduce),
		cfg:   cfg,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetState returns the current state. Callers must not mutate it.
func (s *Store) GetState() *State {
	return s.c.GetState()
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) *State {
	if claim, ok := a.(ClaimDailyReward); ok && claim.At.IsZero() {
		claim.At = s.now()
		a = claim
	}
	return s.c.Dispatch(a)
}

// Subscribe registers l; the returned function unsubscribes it.
func (s *Store) Subscribe(l Listener) func() {
	return s.c.Subscribe(l)
}

// Initialize replaces the placeholder with the full initial state. It runs at
// most once and reports whether it did.
func (s *Store) Initialize(now time.Time) bool {
	if s.c.GetState().Initialized {
		return false
	}
	return s.c.ReplaceIf(func(cur *State) bool { return !cur.Initialized }, Initial(s.cfg, now, s.newID))
}
