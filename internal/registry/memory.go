package registry

import (
	"context"
	"sync"

	"github.com/weiawesome/wes-io-relay/internal/domain"
)

// MemoryRegistry keeps live sessions in process memory.
type MemoryRegistry struct {
	sessions map[string]domain.LiveSession
	mu       sync.RWMutex
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]domain.LiveSession),
	}
}

func (r *MemoryRegistry) Register(ctx context.Context, connID string) (*domain.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[connID]; ok {
		return &s, nil
	}
	s := domain.NewLiveSession(connID)
	r.sessions[connID] = *s
	return s, nil
}

func (r *MemoryRegistry) Unregister(ctx context.Context, connID string) error {
	r.mu.Lock()
	delete(r.sessions, connID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]domain.LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.LiveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRegistry) Close() error { return nil }
