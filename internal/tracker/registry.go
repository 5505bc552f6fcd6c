package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Registry holds one tracker per project.
type Registry struct {
	opts Options

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewRegistry creates a registry whose trackers share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		trackers: make(map[string]*Tracker),
	}
}

// Get returns the tracker of projectID, creating it on first use.
func (r *Registry) Get(projectID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[projectID]
	if !ok {
		t = New(projectID, r.opts)
		r.trackers[projectID] = t
	}
	return t
}

// Lookup returns the tracker of projectID without creating one.
func (r *Registry) Lookup(projectID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[projectID]
	return t, ok
}

// Dispose flushes and removes the tracker of projectID. Unknown or already
// disposed projects are a no-op. A tracker whose flush fails stays
// registered.
func (r *Registry) Dispose(ctx context.Context, projectID string) error {
	r.mu.Lock()
	t, ok := r.trackers[projectID]
	delete(r.trackers, projectID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := t.Dispose(ctx); err != nil {
		r.restore(projectID, t)
		return err
	}
	return nil
}

// restore puts back a tracker whose dispose failed. It is still open with
// its pending work; a tracker created meanwhile takes precedence.
func (r *Registry) restore(projectID string, t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.trackers[projectID]; !taken {
		r.trackers[projectID] = t
	}
}

// DisposeAll disposes every tracker and returns the joined errors.
func (r *Registry) DisposeAll(ctx context.Context) error {
	r.mu.Lock()
	trackers := r.trackers
	r.trackers = make(map[string]*Tracker)
	r.mu.Unlock()

	ids := make([]string, 0, len(trackers))
	for id := range trackers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := trackers[id].Dispose(ctx); err != nil {
			r.restore(id, trackers[id])
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
