package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memObject struct {
	data []byte
	opts PutOptions
}

// Memory is an in-memory Storage used by tests and local development without
// an object store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// FailPut, when set, makes Put fail for keys it returns true for.
	FailPut func(key string) bool
	// FailDelete, when set, makes Delete fail for keys it returns true for.
	FailDelete func(key string) bool
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if m.FailPut != nil && m.FailPut(key) {
		return fmt.Errorf("put object %q: injected failure", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = memObject{data: stored, opts: opts}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if m.FailDelete != nil && m.FailDelete(key) {
		return fmt.Errorf("delete object %q: injected failure", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *Memory) DeleteMany(ctx context.Context, keys []string) []string {
	var failed []string
	for _, key := range keys {
		if err := m.Delete(ctx, key); err != nil {
			failed = append(failed, key)
		}
	}
	return failed
}

func (m *Memory) Copy(ctx context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.objects[srcKey]
	if !ok {
		return ErrNotFound
	}
	data := make([]byte, len(src.data))
	copy(data, src.data)
	m.objects[dstKey] = memObject{data: data, opts: src.opts}
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.objects[key]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("https://storage.local/%s?expires=%d", key, time.Now().Add(ttl).Unix()), nil
}

// Meta returns the metadata stored with key, for test assertions.
func (m *Memory) Meta(key string) (PutOptions, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	return obj.opts, ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}
