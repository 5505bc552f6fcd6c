package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/p-blackswan/playcraft/internal/store"
)

// maxBundleBytes bounds the decompressed size of a snapshot.
const maxBundleBytes = 256 << 20

// Bundle is a snapshot of a project's files.
type Bundle struct {
	ProjectID string              `json:"project_id"`
	CreatedAt time.Time           `json:"created_at"`
	Files     []store.ProjectFile `json:"files"`
}

// EncodeBundle serialises b as gzip'd JSON.
func EncodeBundle(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(b); err != nil {
		zw.Close()
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBundle reverses EncodeBundle.
func DecodeBundle(data []byte) (*Bundle, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxBundleBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing bundle: %w", err)
	}
	if len(raw) > maxBundleBytes {
		return nil, fmt.Errorf("bundle exceeds %d bytes", maxBundleBytes)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}
