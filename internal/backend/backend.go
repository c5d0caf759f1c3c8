// Package backend opens the record store the settings select.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/config"
	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/store"
	"github.com/kutbudev/promptvault/internal/store/postgres"
	"github.com/kutbudev/promptvault/internal/store/remote"
	"github.com/kutbudev/promptvault/internal/store/sqlite"
)

// Open returns the configured store. The caller owns it and must Close it.
func Open(ctx context.Context, settings *config.Settings, log *zap.Logger) (store.Store, error) {
	log = logging.OrNop(log)

	var (
		s   store.Store
		err error
	)
	switch settings.Backend {
	case config.BackendSQLite, "":
		s, err = nonNil(OpenEmbedded(ctx, settings, log))
	case config.BackendRemote:
		s, err = nonNil(OpenRemote(ctx, settings, log))
	case config.BackendPostgres:
		s, err = nonNil(postgres.Open(ctx, settings.DatabaseURL, log.Named("postgres")))
	default:
		return nil, fmt.Errorf("unknown backend %q", settings.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// nonNil keeps a typed nil pointer out of the store.Store interface
func nonNil[S store.Store](s S, err error) (store.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenEmbedded opens the SQLite file at settings.DatabasePath
func OpenEmbedded(ctx context.Context, settings *config.Settings, log *zap.Logger) (*sqlite.Store, error) {
	return sqlite.Open(ctx, settings.DatabasePath, logging.OrNop(log).Named("sqlite"))
}

// OpenRemote resolves the remote credentials and connects, retrying the
// initial probe settings.Remote.ConnectAttempts times.
func OpenRemote(ctx context.Context, settings *config.Settings, log *zap.Logger) (*remote.Store, error) {
	log = logging.OrNop(log)

	creds, source, err := config.ResolveRemote(settings.DataDir)
	if err != nil {
		return nil, err
	}
	log.Debug("Remote credentials resolved", zap.String("source", source), zap.String("url", creds.URL))
	if source == config.SourceDevelopment {
		log.Warn("Using development fallback credentials")
	}

	return remote.Connect(ctx,
		remote.Credentials{URL: creds.URL, AnonKey: creds.AnonKey},
		settings.Remote.ConnectAttempts,
		remote.WithTimeout(settings.Remote.Timeout),
		remote.WithLogger(log.Named("remote")),
	)
}

// OpenMigrationTarget opens the store that migration writes into: the
// Postgres database when that backend is configured, the remote service
// otherwise.
func OpenMigrationTarget(ctx context.Context, settings *config.Settings, log *zap.Logger) (store.Store, error) {
	if settings.Backend == config.BackendPostgres {
		return nonNil(postgres.Open(ctx, settings.DatabaseURL, logging.OrNop(log).Named("postgres")))
	}
	return nonNil(OpenRemote(ctx, settings, log))
}
