package countdown

import (
	"sync"
	"time"
)

// Registry держит по одному Tracker на конкурс, чтобы защёлка ended жила между рендерами.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Tracker возвращает трекер конкурса id. Новый дедлайн заменяет трекер.
func (r *Registry) Tracker(id string, deadline time.Time) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackers[id]; ok && t.deadline.Equal(deadline) {
		return t
	}
	t := NewTracker(deadline)
	r.trackers[id] = t
	return t
}

// Forget drops the tracker of a deleted contest. Безопасен для nil.
func (r *Registry) Forget(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.trackers, id)
	r.mu.Unlock()
}
