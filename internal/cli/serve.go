package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/internal/server"
	"github.com/dkrolls/zoneforge/pkg/cache"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
	"github.com/dkrolls/zoneforge/pkg/session"
)

// serveCommand creates the serve command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		providerURL string
		model       string
		backend     string
		redisAddr   string
		mongoURI    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the design pipeline as an HTTP API",
		Long: `Serve the design pipeline as an HTTP API.

Endpoints:
  POST /v1/designs        run the pipeline for a template posted as JSON
  GET  /v1/sessions/{id}  inspect a run session
  GET  /healthz           liveness probe

The artifact cache backend is selected with --cache: 'file' (default) uses
the local XDG cache directory, 'redis' and 'mongo' share the cache between
server replicas, 'none' disables caching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, providerURL, model, backend, redisAddr, mongoURI)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&providerURL, "provider", "mock", "provider base URL, or 'mock'")
	cmd.Flags().StringVar(&model, "model", "", "model identifier sent to the provider")
	cmd.Flags().StringVar(&backend, "cache", "file", "cache backend: file, redis, mongo, none")
	cmd.Flags().StringVar(&redisAddr, "redis", "localhost:6379", "redis address for --cache redis")
	cmd.Flags().StringVar(&mongoURI, "mongo", "mongodb://localhost:27017", "mongo URI for --cache mongo")

	return cmd
}

// runServe builds the server stack and listens until the context ends.
func (c *CLI) runServe(ctx context.Context, addr, providerURL, model, backend, redisAddr, mongoURI string) error {
	store, err := serverCache(ctx, backend, redisAddr, mongoURI)
	if err != nil {
		return fmt.Errorf("initialize cache backend %s: %w", backend, err)
	}
	defer store.Close()

	prov, err := newProvider(providerURL, model)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(store, nil, c.Logger)
	srv := server.New(runner, prov, session.NewMemoryStore(), c.Logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr, "cache", backend, "provider", prov.Name())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// serverCache builds the cache backend selected by flag.
func serverCache(ctx context.Context, backend, redisAddr, mongoURI string) (cache.Cache, error) {
	switch backend {
	case "none":
		return cache.NewNullCache(), nil
	case "file", "":
		return newCache(false)
	case "redis":
		return cache.NewRedisCache(ctx, redisAddr, "", 0)
	case "mongo":
		return cache.NewMongoCache(ctx, mongoURI, "zoneforge", "cache")
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
