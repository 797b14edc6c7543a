package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/authority"
	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/config"
	"github.com/orrery/orrery/internal/persist"
	"github.com/orrery/orrery/internal/preset"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(addr string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            orreryd  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      shared solar-system authority        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mlisten:\033[0m %s\n\n", addr)
}

func run() error {
	cfgPath := "config/orrery.toml"
	if p := os.Getenv("ORRERY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefaults(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := cfg.Logging.BuildLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Authority.BindAddress)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Snapshot store: Postgres when a DSN is configured, otherwise
	// in-memory (state lost on restart).
	var store persist.Store
	if cfg.Database.DSN != "" {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return fmt.Errorf("migrations: %w", err)
		}
		store = persist.NewPGStore(db)
		log.Info("snapshot store ready", zap.String("backend", "postgres"))
	} else {
		store = persist.NewMemStore()
		log.Warn("no database configured, state will not survive restarts")
	}
	defer store.Close()

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", zap.Int("bodies", cat.Count()))

	presets := preset.NewRegistry(cat, log)
	if cfg.Authority.PresetDir != "" {
		if err := presets.LoadDir(cfg.Authority.PresetDir); err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
	}
	log.Info("presets ready", zap.Strings("names", presets.Names()))

	srv, err := authority.NewServer(ctx, cat, presets, store, cfg.Authority, log)
	if err != nil {
		return fmt.Errorf("authority: %w", err)
	}

	httpSrv := &http.Server{
		Addr:    cfg.Authority.BindAddress,
		Handler: srv.Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Info("authority listening", zap.String("addr", cfg.Authority.BindAddress))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := httpSrv.Shutdown(stopCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	srv.Hub().CloseAll()
	log.Info("authority stopped")
	return nil
}
