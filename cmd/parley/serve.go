package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	parley "github.com/parleyflow/parley"
	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/internal/metrics"
	"github.com/parleyflow/parley/pkg/adapters/file"
	"github.com/parleyflow/parley/pkg/adapters/httpapi"
	"github.com/parleyflow/parley/pkg/adapters/httpcall"
	"github.com/parleyflow/parley/pkg/adapters/llm/anthropic"
	"github.com/parleyflow/parley/pkg/adapters/llm/openai"
	"github.com/parleyflow/parley/pkg/adapters/memory"
	"github.com/parleyflow/parley/pkg/adapters/postgres"
	redisadapter "github.com/parleyflow/parley/pkg/adapters/redis"
	"github.com/parleyflow/parley/pkg/config"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/flow"
	"github.com/parleyflow/parley/pkg/persistence/middleware"
	"github.com/parleyflow/parley/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow server",
	Long: `Starts the HTTP server: session and turn endpoints per registered flow,
flow administration, health and Prometheus metrics. Configuration comes
from PARLEY_* environment variables; flags override the listen address
and flows directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides PARLEY_ADDR)")
	serveCmd.Flags().StringP("flows", "f", "", "Directory of flow documents to register (overrides PARLEY_FLOWS_DIR)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if dir, _ := cmd.Flags().GetString("flows"); dir != "" {
		cfg.FlowsDir = dir
	}

	logger := buildLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session persistence and turn locking.
	var (
		sessions ports.SessionStore
		locker   ports.DistributedLocker
	)
	if cfg.RedisURL != "" {
		redisOpts, err := backend.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := backend.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		sessions = redisadapter.NewFromClient(client, redisadapter.WithTTL(cfg.SessionTTL))
		locker = redisadapter.NewLocker(client, "parley:")
		logger.Info("session store ready", "backend", "redis")
	} else if cfg.SessionsDir != "" {
		sessions = file.New(cfg.SessionsDir)
		logger.Info("session store ready", "backend", "file", "dir", cfg.SessionsDir)
	} else {
		sessions = memory.NewSessionStore()
		logger.Info("session store ready", "backend", "memory")
	}
	if cfg.SessionKey != "" {
		sessions = middleware.Chain(sessions,
			middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
				ActiveKey: []byte(cfg.SessionKey),
			}))
		logger.Info("session encryption enabled")
	}

	// Flow persistence.
	var flows ports.FlowStore
	if cfg.PostgresURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		store := postgres.NewFlowStore(pool)
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init flow store: %w", err)
		}
		flows = store
		logger.Info("flow store ready", "backend", "postgres")
	} else {
		flows = memory.NewFlowStore()
		logger.Info("flow store ready", "backend", "memory")
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder()
	recorder.MustRegister(registry)

	caller := httpcall.New(httpcall.WithLogger(logger))
	flowOpts := []parley.Option{
		parley.WithSessionStore(sessions),
		parley.WithActionCaller(caller),
		parley.WithActionTimeout(cfg.ActionTimeout),
		parley.WithLogger(logger),
		parley.WithMetrics(recorder),
	}
	if locker != nil {
		flowOpts = append(flowOpts, parley.WithLocker(locker))
	}
	if cfg.OpenAIKey != "" {
		flowOpts = append(flowOpts, parley.WithCompleter("openai", openai.New(cfg.OpenAIKey)))
	}
	if cfg.AnthropicKey != "" {
		flowOpts = append(flowOpts, parley.WithCompleter("anthropic", anthropic.New(cfg.AnthropicKey)))
	}
	if cfg.DefaultProvider != "" {
		flowOpts = append(flowOpts, parley.WithDefaultProvider(cfg.DefaultProvider))
	}

	factory := func(def *domain.FlowDefinition) (httpapi.FlowRunner, error) {
		return parley.New(def, flowOpts...)
	}

	runners := make(map[string]httpapi.FlowRunner)

	// Flows already in the store become servable at startup.
	storedIDs, err := flows.List(ctx)
	if err != nil {
		return fmt.Errorf("list flows: %w", err)
	}
	for _, id := range storedIDs {
		def, err := flows.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load flow %q: %w", id, err)
		}
		runner, err := factory(def)
		if err != nil {
			return fmt.Errorf("flow %q: %w", id, err)
		}
		runners[id] = runner
	}

	// Flow documents on disk are registered and stored.
	if cfg.FlowsDir != "" {
		defs, err := loadFlowsDir(cfg.FlowsDir)
		if err != nil {
			return err
		}
		for _, def := range defs {
			runner, err := factory(def)
			if err != nil {
				return fmt.Errorf("flow %q: %w", def.ID, err)
			}
			if err := flows.Put(ctx, def); err != nil {
				return fmt.Errorf("store flow %q: %w", def.ID, err)
			}
			runners[def.ID] = runner
			logger.Info("flow registered", "flow", def.ID, "nodes", len(def.Nodes))
		}
	}

	server := httpapi.NewServer(runners,
		httpapi.WithFlowStore(flows, factory),
		httpapi.WithLogger(logger),
		httpapi.WithRegistry(registry),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "flows", len(runners))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown incomplete", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("close server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.LogFormat == "json" {
		return logging.NewJSON(level)
	}
	return logging.New(level)
}

func loadFlowsDir(dir string) ([]*domain.FlowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read flows dir: %w", err)
	}
	var defs []*domain.FlowDefinition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		def, err := flow.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
