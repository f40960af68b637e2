// Command migrate applies the embedded database migrations.
// Only the database section of the configuration is read, from DATABASE_*
// environment variables.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	"github.com/Queyrouzec/vocappulary-server/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var db config.DatabaseConfig
	if err := cleanenv.ReadEnv(&db); err != nil {
		logger.Error("read database config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := postgres.Migrate(ctx, db.DSN)
	if err != nil {
		logger.Error("migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("migrations applied", slog.Int("count", applied))
}
