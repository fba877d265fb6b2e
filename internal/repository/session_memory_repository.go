package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemorySessionRepository keeps sessions in a bounded, expiring in-process LRU.
// It suits single-instance deployments and local development.
type MemorySessionRepository struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, map[string]string]
}

// NewMemorySessionRepository constructs an in-memory session repository.
func NewMemorySessionRepository(capacity int, retention time.Duration) *MemorySessionRepository {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemorySessionRepository{cache: expirable.NewLRU[string, map[string]string](capacity, nil, retention)}
}

// Load returns a copy of the stored fields.
func (r *MemorySessionRepository) Load(_ context.Context, sid string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.cache.Get(sid)
	if !ok {
		return map[string]string{}, nil
	}
	return copyFields(current, len(current)), nil
}

// Store swaps in a new map holding the merged fields.
func (r *MemorySessionRepository) Store(_ context.Context, sid string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, _ := r.cache.Get(sid)
	next := copyFields(current, len(current)+len(fields))
	for k, v := range fields {
		next[k] = v
	}
	r.cache.Add(sid, next)
	return nil
}

// Remove deletes the given fields, dropping the entry once it is empty.
func (r *MemorySessionRepository) Remove(_ context.Context, sid string, fields ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.cache.Get(sid)
	if !ok {
		return nil
	}
	next := copyFields(current, len(current))
	for _, f := range fields {
		delete(next, f)
	}
	if len(next) == 0 {
		r.cache.Remove(sid)
		return nil
	}
	r.cache.Add(sid, next)
	return nil
}

// Len reports the number of live sessions.
func (r *MemorySessionRepository) Len() int {
	return r.cache.Len()
}

func copyFields(src map[string]string, size int) map[string]string {
	dst := make(map[string]string, size)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
