// Package server parses card server flags and launches the HTTP API.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/tabletoptools/scenoforge/internal/catalog"
	"github.com/tabletoptools/scenoforge/internal/generator"
	entrypoint "github.com/tabletoptools/scenoforge/internal/platform/cmd"
	"github.com/tabletoptools/scenoforge/internal/platform/timeouts"
	httpserver "github.com/tabletoptools/scenoforge/internal/server"
	"github.com/tabletoptools/scenoforge/internal/service"
	"github.com/tabletoptools/scenoforge/internal/storage/sqlite"
)

// Config holds server command configuration.
type Config struct {
	Address     string `env:"SCENOFORGE_ADDRESS"`
	Port        int    `env:"SCENOFORGE_PORT"         envDefault:"8080"`
	DBPath      string `env:"SCENOFORGE_DB_PATH"      envDefault:"scenoforge.db"`
	CatalogPath string `env:"SCENOFORGE_CATALOG_PATH"`
	AuthSecret  string `env:"SCENOFORGE_AUTH_SECRET"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Address, "address", cfg.Address, "The interface to bind to")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the card database")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Path to a catalogue file (embedded default when empty)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the card HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func serve(ctx context.Context, cfg Config) error {
	if cfg.AuthSecret == "" {
		return errors.New("auth secret is required")
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	svc, err := service.New(generator.New(cat), store)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	auth, err := httpserver.NewTokenAuthenticator(cfg.AuthSecret)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:           httpserver.New(svc, auth).Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
