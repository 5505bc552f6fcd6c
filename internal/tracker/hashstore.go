package tracker

import (
	"context"

	"github.com/p-blackswan/playcraft/internal/store"
)

// SQLHashStore adapts the SQLite store to HashStore.
type SQLHashStore struct {
	Store *store.Store
}

func (s SQLHashStore) SaveFileHashes(ctx context.Context, projectID string, changes []Change) error {
	rows := make([]store.FileHash, len(changes))
	for i, c := range changes {
		rows[i] = store.FileHash{
			Path:      c.Path,
			Hash:      c.Hash,
			Source:    string(c.Source),
			UpdatedAt: c.Timestamp,
		}
	}
	return s.Store.SaveFileHashes(ctx, projectID, rows)
}

func (s SQLHashStore) LoadFileHashes(ctx context.Context, projectID string) (map[string]string, error) {
	rows, err := s.Store.GetFileHashes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for path, h := range rows {
		out[path] = h.Hash
	}
	return out, nil
}
