package bucket

import (
	"context"
	"sync"
	"time"
)

// MemoryBucket is an in-memory bucket for development and tests.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

// NewMemoryBucket creates an empty in-memory bucket.
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{
		objects: make(map[string]*Object),
	}
}

func (m *MemoryBucket) Put(_ context.Context, key string, data []byte, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[k] = &Object{
		Key:         k,
		ContentType: contentType,
		Size:        int64(len(buf)),
		ModifiedAt:  time.Now().UTC(),
		Data:        buf,
	}
	return nil
}

func (m *MemoryBucket) Get(_ context.Context, key string) (*Object, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[k]
	if !ok {
		return nil, ErrObjectNotFound
	}
	out := *obj
	out.Data = append([]byte(nil), obj.Data...)
	return &out, nil
}

func (m *MemoryBucket) Delete(_ context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, k)
	return nil
}

func (m *MemoryBucket) Exists(_ context.Context, key string) (bool, error) {
	k, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[k]
	return ok, nil
}
