package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/api/handler"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/infrastructure/audit"
	"github.com/99minutos/account-system/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/account-system/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/account-system/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/account-system/internal/infrastructure/db/redis"
	"github.com/99minutos/account-system/internal/pkg/config"
)

type directory interface {
	ports.AccountDirectory
	handler.Pinger
}

// store is the backend selected by STORE_DRIVER.
type store struct {
	name  string
	dir   directory
	sink  ports.AuditSink
	close func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		identities := mongostore.NewIdentityRepository(db)
		events := mongostore.NewAuditRepository(db)
		if err := mongostore.Setup(ctx, identities, events); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo setup: %w", err)
		}
		return &store{name: "mongodb", dir: identities, sink: events, close: client.Disconnect}, nil

	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			name:  "postgres",
			dir:   pgstore.NewIdentityRepository(db),
			sink:  audit.NewLogSink(log),
			close: func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return &store{
			name:  "redis",
			dir:   redisstore.NewIdentityRepository(client),
			sink:  audit.NewLogSink(log),
			close: func(context.Context) error { return client.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory directory; identities are lost on restart")
		return &store{
			name:  "memory",
			dir:   memory.NewDirectory(),
			sink:  audit.NewLogSink(log),
			close: func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
