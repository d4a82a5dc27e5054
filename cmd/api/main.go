package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/plantuml-studio/config"
	httpapi "github.com/GoSim-25-26J-441/plantuml-studio/internal/api/http"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/api/http/routes"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/auth"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/bootstrap"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/repository"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/service"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/llm"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/storage/postgres"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/users"
)

const serviceName = "plantuml-studio"

func main() {
	if err := run(); err != nil {
		logging.Default().Fatalw("server exited", "error", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.SetLogLevel(cfg.App.LogLevel); err != nil {
		return err
	}
	log := logging.New("api")
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repo     repository.Repository
		userRepo auth.UserEnsurer
		dbPinger httpapi.Pinger
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: postgres.DSN(&cfg.Database)})
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := bootstrap.Migrate(ctx, pool); err != nil {
			return err
		}

		sqlDB, err := postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		repo = repository.NewPostgresRepository(sqlDB)
		userRepo = users.NewRepo(pool)
		dbPinger = pool
	case config.DriverMemory:
		mem, err := repository.NewMemoryRepository()
		if err != nil {
			return err
		}
		repo = mem
		userRepo = users.NewMemoryRepo()
		log.Warnw("using in-memory store; data is lost on restart")
	}

	engine := rendering.NewHTTPEngine(cfg.Render.ServerURL, cfg.Render.Timeout)
	var renderer rendering.Renderer = rendering.NewGateway(engine)

	var cachePinger httpapi.Pinger
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		log.Warnw("render cache disabled", "error", err)
	case rdb != nil:
		defer rdb.Close()
		renderer = rendering.NewCachedGateway(renderer, rdb, cfg.Redis.CacheTTL)
		cachePinger = httpapi.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Infow("render cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	generator := llm.NewGateway(
		llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout),
		cfg.LLM.Model,
		llm.WithRateLimit(cfg.LLM.RatePerMin, cfg.LLM.RequestBurst),
	)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             dbPinger,
		Cache:          cachePinger,
		V1: routes.V1Deps{
			Users:    userRepo,
			Store:    service.NewVersionStore(repo),
			Workflow: service.NewWorkflow(generator, rendering.NewValidator(engine), renderer),
			Renderer: renderer,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr, "driver", cfg.Database.Driver, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
