package service

import (
	"context"
	"fmt"

	"github.com/okian/datemaker/internal/adapters/meet"
	"github.com/okian/datemaker/internal/adapters/mq/publisher"
	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/config"
	"github.com/okian/datemaker/pkg/logger"
)

// FromConfig opens the configured store, publisher and meeting provider and
// returns a Service using them. Whatever was opened is closed on failure.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	log := logger.Get().Named("service")

	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	pub, sink, err := publisher.New(ctx, cfg.Messaging, log.Named("publisher"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open publisher: %w", err)
	}

	provider, err := openProvider(ctx, cfg.Meet)
	if err != nil {
		_ = pub.Close()
		store.Close()
		return nil, fmt.Errorf("open meeting provider: %w", err)
	}

	base := []Option{
		WithConfig(cfg),
		WithLogger(log),
		WithStore(store),
		WithPublisher(pub, sink),
		WithProvider(provider),
	}
	return New(append(base, opts...)...), nil
}

func openStore(ctx context.Context, db config.Database, log logger.Logger) (repository.Store, error) {
	switch db.Driver {
	case "memory":
		log.Warn(ctx, "using in-memory store, nothing survives a restart")
		return repository.NewMemStore(), nil
	case "postgres":
		store, err := repository.NewPostgresStore(ctx, db.DSN,
			repository.WithMaxConns(db.MaxConns),
			repository.WithSchema(db.ApplySchema),
			repository.WithLogger(log.Named("repository")))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: database.driver %q", config.ErrInvalidConfig, db.Driver)
	}
}

func openProvider(ctx context.Context, m config.Meet) (meet.Provider, error) {
	switch m.Driver {
	case "static":
		return meet.Instrument(meet.NewStaticProvider(m.StaticBaseURL)), nil
	case "google":
		p, err := meet.NewGoogleProvider(ctx, m.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return meet.Instrument(p), nil
	default:
		return nil, fmt.Errorf("%w: %q", meet.ErrUnknownDriver, m.Driver)
	}
}
