package intelligence

import (
	"context"
	"sort"
	"time"

	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

// HashSource supplies the last persisted hash of each project file.
type HashSource interface {
	GetFileHashes(ctx context.Context, projectID string) (map[string]store.FileHash, error)
}

// Status is a file's change classification.
type Status string

const (
	StatusCreated   Status = "created"
	StatusModified  Status = "modified"
	StatusDeleted   Status = "deleted"
	StatusUnchanged Status = "unchanged"
)

// Changes partitions paths by change status. Every list is sorted.
type Changes struct {
	Created   []string `json:"created"`
	Modified  []string `json:"modified"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"unchanged"`
}

// detectChanges classifies files against stored hashes. A file whose hash
// still matches counts as modified when it was stored within window, since
// the tracker persists a hash right after each edit.
func detectChanges(files map[string]File, stored map[string]store.FileHash, hasher tracker.Hasher, now time.Time, window time.Duration) Changes {
	c := Changes{
		Created:   []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: []string{},
	}
	for p, f := range files {
		h, ok := stored[p]
		switch {
		case !ok:
			c.Created = append(c.Created, p)
		case h.Hash != hasher.ComputeHash(f.Content):
			c.Modified = append(c.Modified, p)
		case now.Sub(h.UpdatedAt) <= window:
			c.Modified = append(c.Modified, p)
		default:
			c.Unchanged = append(c.Unchanged, p)
		}
	}
	for p := range stored {
		if _, ok := files[p]; !ok {
			c.Deleted = append(c.Deleted, p)
		}
	}
	sortAll(c)
	return c
}

// detectByMtime is used when no hashes are persisted: files touched within
// window are modified, everything else is unchanged.
func detectByMtime(files map[string]File, now time.Time, window time.Duration) Changes {
	c := Changes{
		Created:   []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: []string{},
	}
	for p, f := range files {
		if !f.ModifiedAt.IsZero() && now.Sub(f.ModifiedAt) <= window {
			c.Modified = append(c.Modified, p)
		} else {
			c.Unchanged = append(c.Unchanged, p)
		}
	}
	sortAll(c)
	return c
}

func sortAll(c Changes) {
	sort.Strings(c.Created)
	sort.Strings(c.Modified)
	sort.Strings(c.Deleted)
	sort.Strings(c.Unchanged)
}

func (c Changes) statusOf(p string) Status {
	for _, s := range []struct {
		list   []string
		status Status
	}{
		{c.Created, StatusCreated},
		{c.Modified, StatusModified},
		{c.Deleted, StatusDeleted},
		{c.Unchanged, StatusUnchanged},
	} {
		i := sort.SearchStrings(s.list, p)
		if i < len(s.list) && s.list[i] == p {
			return s.status
		}
	}
	return ""
}
