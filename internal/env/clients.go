package environment

import (
	"context"
	"log/slog"
	"time"

	"revenda-crm/internal/config"
	"revenda-crm/internal/infra/anticaptcha"
	"revenda-crm/internal/infra/sqlite3"
	"revenda-crm/internal/infra/telegram"
	"revenda-crm/internal/proxy"
)

type Clients struct {
	SQLiteDB    *sqlite3.DB
	Telegram    *telegram.Client
	AntiCaptcha *anticaptcha.Client
	Rotator     *proxy.Rotator
}

func newClients(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, error) {
	sqliteDB, err := provideSQLiteDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	telegramClient, err := provideTelegram(cfg, logger)
	if err != nil {
		return nil, err
	}

	rotator, err := provideRotator(cfg)
	if err != nil {
		return nil, err
	}

	solver := anticaptcha.NewClient(
		cfg.AntiCaptcha.APIURL,
		cfg.AntiCaptcha.ClientKey,
		cfg.AntiCaptcha.PollInterval,
		cfg.AntiCaptcha.MaxPolls,
		logger,
	)

	return &Clients{
		SQLiteDB:    sqliteDB,
		Telegram:    telegramClient,
		AntiCaptcha: solver,
		Rotator:     rotator,
	}, nil
}

func provideSQLiteDB(ctx context.Context, cfg config.Config) (*sqlite3.DB, error) {
	maxLifetimeStr := cfg.DB.MaxLifetime
	if maxLifetimeStr == "" {
		maxLifetimeStr = "5m"
	}
	maxLifetime, err := time.ParseDuration(maxLifetimeStr)
	if err != nil {
		return nil, err
	}

	opts := []sqlite3.Option{
		sqlite3.WithDSN(cfg.DB.Path),
		sqlite3.WithMaxOpenConns(cfg.DB.MaxOpenConns),
		sqlite3.WithMaxIdleConns(cfg.DB.MaxIdleConns),
		sqlite3.WithConnMaxLifetime(maxLifetime),
	}

	db, err := sqlite3.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func provideTelegram(cfg config.Config, logger *slog.Logger) (*telegram.Client, error) {
	// No token means no alert channel; failures still land in the log.
	if cfg.Telegram.BotToken == "" {
		return nil, nil
	}

	return telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.AdminIDs, logger)
}

func provideRotator(cfg config.Config) (*proxy.Rotator, error) {
	if len(cfg.Proxy.Endpoints) == 0 {
		return nil, nil
	}

	return proxy.NewRotator(cfg.Proxy.Endpoints)
}
