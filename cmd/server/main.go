package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/config"
	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/database"
	"github.com/JonMunkholm/salesdash/internal/logging"
	"github.com/JonMunkholm/salesdash/internal/report"
	"github.com/JonMunkholm/salesdash/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_timeout", cfg.Import.Timeout,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Amounts go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()
	pool, err := database.Connect(ctx, database.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		PingTimeout:     cfg.Database.PingTimeout,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store := database.New(pool)
	if err := store.Migrate(ctx); err != nil {
		slog.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	imports := core.NewService(store, store, core.ServiceOptions{
		Timeout:           cfg.Import.Timeout,
		MaxWait:           cfg.Import.MaxWaitTime,
		SkippedLineSample: cfg.Import.SkippedLineSample,
	})
	server := web.NewServer(imports, report.NewService(store), cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		limiter := imports.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for import to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("import did not complete in time", "error", err)
			} else {
				slog.Info("import completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
