package project

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

const (
	maxImageBytes = 5 << 20
	maxAudioBytes = 10 << 20
	maxFontBytes  = 2 << 20
)

type assetKind struct {
	name    string
	maxSize int64
}

var (
	kindImage = assetKind{"image", maxImageBytes}
	kindAudio = assetKind{"audio", maxAudioBytes}
	kindFont  = assetKind{"font", maxFontBytes}
)

// allowedAssets maps accepted content types to their kind.
var allowedAssets = map[string]assetKind{
	"image/png":     kindImage,
	"image/jpeg":    kindImage,
	"image/gif":     kindImage,
	"image/webp":    kindImage,
	"image/svg+xml": kindImage,
	"audio/mpeg":    kindAudio,
	"audio/wav":     kindAudio,
	"audio/ogg":     kindAudio,
	"font/woff":     kindFont,
	"font/woff2":    kindFont,
	"font/ttf":      kindFont,
}

// Asset is an uploaded project asset.
type Asset struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// UploadResult is the outcome of UploadAsset. Asset is nil when the
// upload was rejected by validation.
type UploadResult struct {
	Validation perrors.ValidationResult `json:"validation"`
	Asset      *Asset                   `json:"asset,omitempty"`
}

// AssetService validates and stores project assets.
type AssetService struct {
	projects *Service
	bucket   bucket.Bucket
	baseURL  string
	logger   zerolog.Logger
}

// NewAssetService creates an asset service.
func NewAssetService(projects *Service, b bucket.Bucket, publicBaseURL string, logger zerolog.Logger) *AssetService {
	return &AssetService{
		projects: projects,
		bucket:   b,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		logger:   logger.With().Str("component", "assets").Logger(),
	}
}

// ValidateAsset checks name, content type and size. It never fails with an
// error; rejections are reported in the result.
func (s *AssetService) ValidateAsset(name, contentType string, size int64) perrors.ValidationResult {
	return ValidateAsset(name, contentType, size)
}

// ValidateAsset is the stateless form of AssetService.ValidateAsset.
func ValidateAsset(name, contentType string, size int64) perrors.ValidationResult {
	if strings.TrimSpace(name) == "" {
		return perrors.Rejected("file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return perrors.Rejected("file name %q must not contain path separators", name)
	}
	ct := normaliseContentType(contentType)
	kind, ok := allowedAssets[ct]
	if !ok {
		return perrors.Rejected("unsupported file type %q", contentType)
	}
	if size <= 0 {
		return perrors.Rejected("file is empty")
	}
	if size > kind.maxSize {
		return perrors.Rejected("%s files must be at most %d MB", kind.name, kind.maxSize>>20)
	}
	return perrors.Valid()
}

// UploadAsset validates and stores data as an asset of the project.
func (s *AssetService) UploadAsset(ctx context.Context, projectID, name, contentType string, data []byte) (UploadResult, error) {
	if _, err := s.projects.Owned(ctx, projectID); err != nil {
		return UploadResult{}, err
	}
	res := s.ValidateAsset(name, contentType, int64(len(data)))
	if !res.Valid {
		return UploadResult{Validation: res}, nil
	}

	ct := normaliseContentType(contentType)
	key := bucket.Join("assets", projectID, path.Base(name))
	if err := s.bucket.Put(ctx, key, data, ct); err != nil {
		return UploadResult{}, perrors.Wrap("storage", "upload asset", err)
	}
	s.logger.Info().
		Str("project_id", projectID).
		Str("key", key).
		Int("size", len(data)).
		Msg("asset uploaded")
	return UploadResult{
		Validation: res,
		Asset: &Asset{
			Key:         key,
			Name:        path.Base(name),
			ContentType: ct,
			Size:        int64(len(data)),
			URL:         s.baseURL + "/" + key,
		},
	}, nil
}

func normaliseContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpg":
		return "image/jpeg"
	case "audio/mp3":
		return "audio/mpeg"
	case "audio/x-wav", "audio/wave":
		return "audio/wav"
	}
	return ct
}
