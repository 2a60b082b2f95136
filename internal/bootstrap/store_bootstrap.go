package bootstrap

import (
	"context"
	"fmt"

	"github.com/agendauth/agendauth/internal/store"

	"github.com/rs/zerolog/log"
)

// SetupStore opens the configured store backend.
func (app *BootstrapApp) SetupStore(ctx context.Context) (store.Store, error) {
	switch app.config.Store.Backend {
	case "", "sqlite":
		log.Debug().Str("path", app.config.Store.Path).Msg("Using sqlite store")
		return store.NewSqliteStore(app.config.Store.Path)
	case "redis":
		log.Debug().Str("address", app.config.Store.Redis.Address).Msg("Using redis store")
		return store.NewRedisStore(ctx, app.config.Store.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", app.config.Store.Backend)
	}
}
