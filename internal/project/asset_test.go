package project

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

func TestValidateAsset(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		size        int64
		valid       bool
	}{
		{"png", "logo.png", "image/png", 1024, true},
		{"jpg alias", "bg.jpg", "image/jpg", 1024, true},
		{"svg", "icon.svg", "image/svg+xml", 10, true},
		{"image at limit", "big.png", "image/png", 5 << 20, true},
		{"image over limit", "big.png", "image/png", 5<<20 + 1, false},
		{"mp3", "theme.mp3", "audio/mpeg", 9 << 20, true},
		{"audio over limit", "theme.wav", "audio/wav", 10<<20 + 1, false},
		{"font", "title.woff2", "font/woff2", 100, true},
		{"font over limit", "title.ttf", "font/ttf", 2<<20 + 1, false},
		{"with charset", "a.png", "image/png; charset=binary", 1, true},
		{"executable", "run.exe", "application/x-msdownload", 1, false},
		{"empty", "a.png", "image/png", 0, false},
		{"no name", "", "image/png", 1, false},
		{"path in name", "../a.png", "image/png", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateAsset(tt.file, tt.contentType, tt.size)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Error)
			} else {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestUploadAsset(t *testing.T) {
	st := newStore(t)
	projects := NewService(st, nil, zerolog.Nop())
	b := bucket.NewMemoryBucket()
	svc := NewAssetService(projects, b, "https://play.example.com", zerolog.Nop())
	ctx := as("u1")

	p, err := projects.Create(ctx, CreateInput{Name: "Quest"})
	require.NoError(t, err)

	res, err := svc.UploadAsset(ctx, p.ID, "logo.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.True(t, res.Validation.Valid)
	require.NotNil(t, res.Asset)
	assert.Equal(t, "assets/"+p.ID+"/logo.png", res.Asset.Key)
	assert.Equal(t, "https://play.example.com/assets/"+p.ID+"/logo.png", res.Asset.URL)

	obj, err := b.Get(ctx, res.Asset.Key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)

	rejected, err := svc.UploadAsset(ctx, p.ID, "run.exe", "application/x-msdownload", []byte("MZ"))
	require.NoError(t, err)
	assert.False(t, rejected.Validation.Valid)
	assert.Nil(t, rejected.Asset)

	_, err = svc.UploadAsset(as("u2"), p.ID, "logo.png", "image/png", []byte("png"))
	assert.ErrorIs(t, err, perrors.ErrForbidden)
}
