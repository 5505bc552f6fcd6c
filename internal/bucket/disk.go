package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DiskBucket stores objects as files under a root directory. Object data
// lives under objects/ and a JSON metadata sidecar under meta/.
type DiskBucket struct {
	root   string
	logger zerolog.Logger
}

type diskMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// NewDiskBucket creates the root directory if needed.
func NewDiskBucket(root string, logger zerolog.Logger) (*DiskBucket, error) {
	for _, dir := range []string{filepath.Join(root, "objects"), filepath.Join(root, "meta")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bucket directory: %w", err)
		}
	}
	return &DiskBucket{
		root:   root,
		logger: logger.With().Str("component", "bucket").Logger(),
	}, nil
}

func (d *DiskBucket) paths(key string) (string, string, string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	rel := filepath.FromSlash(k)
	return k, filepath.Join(d.root, "objects", rel), filepath.Join(d.root, "meta", rel+".json"), nil
}

func (d *DiskBucket) Put(_ context.Context, key string, data []byte, contentType string) error {
	k, dataPath, metaPath, err := d.paths(key)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(diskMeta{
		ContentType: contentType,
		Size:        int64(len(data)),
		ModifiedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode object metadata: %w", err)
	}
	if err := writeAtomic(dataPath, data); err != nil {
		return fmt.Errorf("failed to write object %s: %w", k, err)
	}
	if err := writeAtomic(metaPath, meta); err != nil {
		return fmt.Errorf("failed to write object metadata %s: %w", k, err)
	}
	d.logger.Debug().Str("key", k).Int("size", len(data)).Msg("object stored")
	return nil
}

func (d *DiskBucket) Get(_ context.Context, key string) (*Object, error) {
	k, dataPath, metaPath, err := d.paths(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", k, err)
	}

	obj := &Object{Key: k, Data: data, Size: int64(len(data))}
	raw, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		var m diskMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode object metadata %s: %w", k, err)
		}
		obj.ContentType = m.ContentType
		obj.ModifiedAt = m.ModifiedAt
	case errors.Is(err, fs.ErrNotExist):
		if info, statErr := os.Stat(dataPath); statErr == nil {
			obj.ModifiedAt = info.ModTime().UTC()
		}
	default:
		return nil, fmt.Errorf("failed to read object metadata %s: %w", k, err)
	}
	return obj, nil
}

func (d *DiskBucket) Delete(_ context.Context, key string) error {
	k, dataPath, metaPath, err := d.paths(key)
	if err != nil {
		return err
	}
	for _, p := range []string{dataPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete object %s: %w", k, err)
		}
	}
	return nil
}

func (d *DiskBucket) Exists(_ context.Context, key string) (bool, error) {
	_, dataPath, _, err := d.paths(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
