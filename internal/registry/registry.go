package registry

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-relay/internal/config"
	"github.com/weiawesome/wes-io-relay/internal/domain"
)

// Registry tracks which connections are live.
type Registry interface {
	// Register records connID as live. Registering an already live
	// connection returns its existing session.
	Register(ctx context.Context, connID string) (*domain.LiveSession, error)

	// Unregister removes connID. Unknown IDs are ignored.
	Unregister(ctx context.Context, connID string) error

	// List returns a snapshot of all live sessions, in no particular order.
	List(ctx context.Context) ([]domain.LiveSession, error)

	Close() error
}

// New creates the registry named by cfg.Type. Background refresh for the
// Redis variant is bound to ctx.
func New(ctx context.Context, cfg config.RegistryConfig) (Registry, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryRegistry(), nil
	case "redis":
		r, err := NewRedisRegistry(cfg)
		if err != nil {
			return nil, err
		}
		r.StartHeartbeat(ctx)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown registry type %q", cfg.Type)
	}
}
