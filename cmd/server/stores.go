package main

import (
	"context"
	"log/slog"

	"github.com/vedran77/nestmate/internal/config"
	"github.com/vedran77/nestmate/internal/database"
	"github.com/vedran77/nestmate/internal/repository"
	postgresrepo "github.com/vedran77/nestmate/internal/repository/postgres"
	sqliterepo "github.com/vedran77/nestmate/internal/repository/sqlite"
)

type stores struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	ping          func(context.Context) error
	close         func()
}

// openStores connects the configured driver. SQLite is always migrated on
// open; Postgres only when migrate is set.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger, migrate bool) (*stores, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db.DB, log); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Opened sqlite database", "path", cfg.SQLitePath)
		return &stores{
			users:         sqliterepo.NewUserRepo(db),
			conversations: sqliterepo.NewConversationRepo(db),
			messages:      sqliterepo.NewMessageRepo(db),
			ping:          db.PingContext,
			close:         func() { db.Close() },
		}, nil
	}

	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.MigratePostgres(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	log.Info("Connected to database", "host", cfg.DBHost, "name", cfg.DBName)
	return &stores{
		users:         postgresrepo.NewUserRepo(pool),
		conversations: postgresrepo.NewConversationRepo(pool),
		messages:      postgresrepo.NewMessageRepo(pool),
		ping:          pool.Ping,
		close:         pool.Close,
	}, nil
}
