package game

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

func TestPlaceholder_Deterministic(t *testing.T) {
	a, b := Placeholder(), Placeholder()
	assert.Equal(t, a, b)
	assert.False(t, a.Initialized)
	assert.Empty(t, a.Events)
	assert.Empty(t, a.Inbox)
}

func TestInitial_FromDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := Initial(DefaultConfig(), now, seqIDs())

	assert.True(t, s.Initialized)
	require.Len(t, s.Areas, 3)
	assert.True(t, s.Areas[0].Unlocked)
	assert.False(t, s.Areas[1].Unlocked)

	ev, ok := s.Event("lava-quest")
	require.True(t, ok)
	require.NotNil(t, ev.EndTime)
	assert.Equal(t, now.Add(24*time.Hour), *ev.EndTime)
	assert.True(t, ev.Active)

	album, _ := s.Event("album")
	assert.False(t, album.Active)

	assert.Equal(t, "msg-1", s.Inbox[0].ID)
	assert.Equal(t, "team-royals", s.Player.TeamID)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown event type": `
player: {max_lives: 5}
events:
  - {id: x, type: bingo, max_progress: 3}
`,
		"zero max lives": `player: {max_lives: 0}`,
		"unknown field":  `player: {max_lives: 5, gems: 3}`,
		"duplicate area": `
player: {max_lives: 5}
areas:
  - {id: 1, name: a}
  - {id: 1, name: b}
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestStore_InitializeOnce(t *testing.T) {
	st := NewStore(DefaultConfig(), WithIDs(seqIDs()))
	assert.False(t, st.GetState().Initialized)

	var notified int
	st.Subscribe(func(prev, next *State, _ Action) { notified++ })

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, st.Initialize(now))
	assert.False(t, st.Initialize(now.Add(time.Hour)))
	assert.True(t, st.GetState().Initialized)
	assert.Equal(t, 1, notified)
}

func TestStore_DispatchStampsDailyClaim(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := NewStore(DefaultConfig(), WithClock(func() time.Time { return at }))
	st.Initialize(at)

	s := st.Dispatch(ClaimDailyReward{Day: 1})
	require.NotNil(t, s.DailyRewards.LastClaimedAt)
	assert.Equal(t, at, *s.DailyRewards.LastClaimedAt)
}

func TestStore_NoOpDoesNotNotify(t *testing.T) {
	st := NewStore(DefaultConfig())
	st.Initialize(time.Now())

	calls := 0
	unsub := st.Subscribe(func(_, _ *State, _ Action) { calls++ })
	defer unsub()

	st.Dispatch(UseBooster{BoosterID: "laser"})
	st.Dispatch(UpdateCoins{Delta: 1})
	assert.Equal(t, 1, calls)
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction(ActionCompleteTask, json.RawMessage(`{"area_id":1,"task_id":"garden-bench"}`))
	require.NoError(t, err)
	assert.Equal(t, CompleteTask{AreaID: 1, TaskID: "garden-bench"}, a)

	a, err = DecodeAction(ActionClaimDailyReward, nil)
	require.NoError(t, err)
	assert.Equal(t, ClaimDailyReward{}, a)

	_, err = DecodeAction("EXPLODE", nil)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = DecodeAction(ActionUpdateCoins, json.RawMessage(`{"delta":"lots"}`))
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}
