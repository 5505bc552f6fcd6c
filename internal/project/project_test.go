package project

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/auth"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTrackers(t *testing.T, st *store.Store) *tracker.Registry {
	t.Helper()
	reg := tracker.NewRegistry(tracker.Options{
		Debounce: time.Hour,
		Store:    tracker.SQLHashStore{Store: st},
		Logger:   zerolog.Nop(),
	})
	t.Cleanup(func() { reg.DisposeAll(context.Background()) })
	return reg
}

func as(userID string) context.Context {
	return auth.WithUser(context.Background(), &auth.User{ID: userID, Name: "User " + userID})
}

func TestCreate_RequiresUser(t *testing.T) {
	svc := NewService(newStore(t), nil, zerolog.Nop())
	_, err := svc.Create(context.Background(), CreateInput{Name: "Quest"})
	assert.ErrorIs(t, err, perrors.ErrNotAuthenticated)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newStore(t), nil, zerolog.Nop())
	tests := map[string]CreateInput{
		"empty name":       {Name: "  "},
		"long name":        {Name: string(make([]byte, maxNameLen+1))},
		"unknown template": {Name: "Quest", Template: "tetris"},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(as("u1"), in)
			assert.ErrorIs(t, err, perrors.ErrInvalidInput)
		})
	}
}

func TestCreate_FromTemplateSeedsAndTracksFiles(t *testing.T) {
	st := newStore(t)
	reg := newTrackers(t, st)
	svc := NewService(st, reg, zerolog.Nop())
	ctx := as("u1")

	p, err := svc.Create(ctx, CreateInput{Name: "Match Quest", Template: "match3"})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.OwnerID)
	assert.NotEmpty(t, p.ID)

	files, err := svc.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	seed, _ := Template("match3")
	assert.Len(t, files, len(seed))

	tr, ok := reg.Lookup(p.ID)
	require.True(t, ok)
	assert.Equal(t, len(seed), tr.PendingCount())
	require.NoError(t, tr.Flush(context.Background()))

	hashes, err := st.GetFileHashes(context.Background(), p.ID)
	require.NoError(t, err)
	require.Contains(t, hashes, "/src/App.tsx")
	assert.Equal(t, string(tracker.SourceTemplate), hashes["/src/App.tsx"].Source)
}

func TestGet_OwnershipAndMissing(t *testing.T) {
	svc := NewService(newStore(t), nil, zerolog.Nop())
	p, err := svc.Create(as("u1"), CreateInput{Name: "Quest"})
	require.NoError(t, err)

	got, err := svc.Get(as("u1"), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quest", got.Name)

	_, err = svc.Get(as("u2"), p.ID)
	assert.ErrorIs(t, err, perrors.ErrForbidden)

	missing, err := svc.Get(as("u1"), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.Owned(as("u1"), "nope")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestList(t *testing.T) {
	svc := NewService(newStore(t), nil, zerolog.Nop())
	_, err := svc.Create(as("u1"), CreateInput{Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(as("u2"), CreateInput{Name: "B"})
	require.NoError(t, err)

	list, err := svc.List(as("u1"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)

	empty, err := svc.List(as("u3"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdate(t *testing.T) {
	svc := NewService(newStore(t), nil, zerolog.Nop())
	p, err := svc.Create(as("u1"), CreateInput{Name: "Quest", Description: "old"})
	require.NoError(t, err)

	name := "Quest II"
	updated, err := svc.Update(as("u1"), p.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Quest II", updated.Name)
	assert.Equal(t, "old", updated.Description)

	blank := " "
	_, err = svc.Update(as("u1"), p.ID, UpdateInput{Name: &blank})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = svc.Update(as("u2"), p.ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, perrors.ErrForbidden)
}

func TestDelete_RunsHooksAndDisposesTracker(t *testing.T) {
	st := newStore(t)
	reg := newTrackers(t, st)
	svc := NewService(st, reg, zerolog.Nop())

	var mu sync.Mutex
	var deleted []string
	svc.OnDelete(func(_ context.Context, id string) {
		mu.Lock()
		deleted = append(deleted, id)
		mu.Unlock()
	})

	p, err := svc.Create(as("u1"), CreateInput{Name: "Quest", Template: "blank"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(as("u2"), p.ID), perrors.ErrForbidden)
	require.NoError(t, svc.Delete(as("u1"), p.ID))

	assert.Equal(t, []string{p.ID}, deleted)
	_, ok := reg.Lookup(p.ID)
	assert.False(t, ok)

	got, err := svc.Get(as("u1"), p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, svc.Delete(as("u1"), p.ID), perrors.ErrNotFound)
}

func TestSaveFiles(t *testing.T) {
	st := newStore(t)
	reg := newTrackers(t, st)
	svc := NewService(st, reg, zerolog.Nop())
	ctx := as("u1")
	p, err := svc.Create(ctx, CreateInput{Name: "Quest"})
	require.NoError(t, err)

	saved, err := svc.SaveFiles(ctx, p.ID, []FileInput{
		{Path: "src/App.tsx", Content: "export default 1"},
		{Path: "/src/./lib//util.ts", Content: "export {}"},
	}, tracker.SourceAIEdit)
	require.NoError(t, err)
	assert.Equal(t, "/src/App.tsx", saved[0].Path)
	assert.Equal(t, "/src/lib/util.ts", saved[1].Path)

	files, err := svc.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/src/App.tsx", files[0].Path)

	tr, ok := reg.Lookup(p.ID)
	require.True(t, ok)
	assert.Equal(t, 2, tr.PendingCount())

	_, err = svc.SaveFiles(ctx, p.ID, []FileInput{{Path: "../etc/passwd"}}, "")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = svc.SaveFiles(ctx, p.ID, nil, "")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = svc.SaveFiles(ctx, p.ID, []FileInput{{Path: "/a.ts"}}, tracker.Source("robot"))
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = svc.SaveFiles(as("u2"), p.ID, []FileInput{{Path: "/a.ts"}}, "")
	assert.ErrorIs(t, err, perrors.ErrForbidden)
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "src/App.tsx", want: "/src/App.tsx"},
		{in: "/src//a/./b.ts", want: "/src/a/b.ts"},
		{in: " /index.html ", want: "/index.html"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
		{in: "/src/../../x", wantErr: true},
		{in: `src\App.tsx`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, perrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"blank", "match3"}, TemplateNames())
	files, ok := Template("blank")
	require.True(t, ok)
	files[0].Content = "mutated"
	again, _ := Template("blank")
	assert.NotEqual(t, "mutated", again[0].Content)
}
