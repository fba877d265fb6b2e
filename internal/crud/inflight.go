package crud

import "sync"

// Inflight tracks which (session, screen) pairs have a submission running.
// A second submission on the same pair is refused until the first returns.
type Inflight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInflight constructs an empty tracker.
func NewInflight() *Inflight {
	return &Inflight{active: make(map[string]struct{})}
}

// Begin marks key busy. ok is false when key was already busy.
func (f *Inflight) Begin(key string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return func() {}, false
	}
	f.active[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, key)
			f.mu.Unlock()
		})
	}, true
}

// Active reports whether key has a submission running.
func (f *Inflight) Active(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.active[key]
	return busy
}
