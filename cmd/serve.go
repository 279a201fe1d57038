package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/tinoosan/finance/internal/httpapi/v1"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/storage/memory"
	pgstore "github.com/tinoosan/finance/internal/storage/postgres"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	store, closeFn, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	api := httpapi.New(store, httpapi.Options{
		Location: cfg.Location,
		Auth: httpapi.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
	}, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("finance service listening", "addr", srv.Addr, "report_timezone", cfg.Location.String(), "auth", cfg.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "err", err)
			return err
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// openStore selects Postgres when DATABASE_URL is set, the in-memory store otherwise.
func openStore(ctx context.Context, logger *slog.Logger) (httpapi.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		store := memory.New()
		// the in-memory store always starts with a dev user
		user, accs, err := store.SeedDev(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("dev seed: %w", err)
		}
		logDevSeed(logger, "memory", user, accs)
		printDevSeedBanner(user, accs)
		logger.Info("storage backend: memory")
		return store, func() {}, nil
	}

	if cfg.MigrateOnStart {
		if err := pgstore.Migrate(cfg.DatabaseURL, false); err != nil {
			return nil, nil, fmt.Errorf("migrate on start: %w", err)
		}
		logger.Info("migrations applied")
	}
	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pg.EnsureDefaultCategories(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("default categories: %w", err)
	}
	if cfg.DevSeed {
		user, accs, err := pg.SeedDev(ctx)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else {
			logDevSeed(logger, "postgres", user, accs)
			printDevSeedBanner(user, accs)
		}
	}
	logger.Info("storage backend: postgres")
	return pg, pg.Close, nil
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, user ledger.User, accs []ledger.Account) {
	ids := make(map[string]string, len(accs))
	for _, a := range accs {
		ids[string(a.Type)+"_account_id"] = a.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "user_id", user.ID.String(), "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(user ledger.User, accs []ledger.Account) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	for _, a := range accs {
		fmt.Printf("%s_account_id: %s (%s, %s %s)\n", a.Type, a.ID.String(), a.Name, a.Currency, a.Balance.Decimal().String())
	}
	fmt.Println("==================================================")
}
