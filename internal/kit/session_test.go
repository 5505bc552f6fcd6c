package kit

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/game"
	"github.com/p-blackswan/playcraft/internal/navigation"
)

func TestRegistry_CreateInitialises(t *testing.T) {
	r := NewRegistry(4, game.DefaultConfig(), zerolog.Nop())
	s := r.Create()

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	snap := s.Snapshot()
	assert.True(t, snap.Game.Initialized)
	assert.NotEmpty(t, snap.Game.Events)
	assert.Equal(t, navigation.PageHome, snap.Navigation.CurrentPage)
}

func TestRegistry_StoresAreIndependent(t *testing.T) {
	r := NewRegistry(4, game.DefaultConfig(), zerolog.Nop())
	a, b := r.Create(), r.Create()

	a.Game.Dispatch(game.UpdateCoins{Delta: 5})
	assert.Equal(t, b.Game.GetState().Player.Coins+5, a.Game.GetState().Player.Coins)
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(2, game.DefaultConfig(), zerolog.Nop())
	first := r.Create()
	second := r.Create()
	_, _ = r.Get(first.ID)
	r.Create()

	_, ok := r.Get(second.ID)
	assert.False(t, ok)
	_, ok = r.Get(first.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry(2, game.DefaultConfig(), zerolog.Nop())
	s := r.Create()
	assert.True(t, r.Delete(s.ID))
	assert.False(t, r.Delete(s.ID))
	assert.Equal(t, 0, r.Len())
}
