package services

import "sync"

// InFlight помнит выполняющиеся мутации, чтобы повторная отправка того же действия
// отклонялась, а не уходила в API дважды.
type InFlight struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{running: make(map[string]struct{})}
}

// Begin помечает key как выполняющийся. Возвращает функцию освобождения или
// ErrRequestInFlight, если key уже занят.
func (g *InFlight) Begin(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return nil, ErrRequestInFlight
	}
	g.running[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.running, key)
		g.mu.Unlock()
	}, nil
}

func (g *InFlight) Active(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[key]
	return busy
}
