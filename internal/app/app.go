package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"dejure-gateway/docs"
	"dejure-gateway/internal/backend"
	"dejure-gateway/internal/config"
	"dejure-gateway/internal/database"
	"dejure-gateway/internal/event"
	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/handler"
	"dejure-gateway/internal/logger"
	"dejure-gateway/internal/model"
	"dejure-gateway/internal/repository"
	"dejure-gateway/internal/router"
	"dejure-gateway/internal/session"
	"dejure-gateway/internal/token"
	"dejure-gateway/internal/websocket"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// sessionBackend is the chosen session store plus what the app needs to
// supervise it.
type sessionBackend struct {
	store   session.Store
	sweeper session.Sweeper
	health  handler.HealthCheck
	close   func()
}

func New(level *slog.LevelVar) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level != nil {
		level.Set(logger.ParseLevel(cfg.LogLevel))
	}

	sessions, err := openSessionBackend(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("session store ready", "store", cfg.SessionStore, "ttl", cfg.SessionTTL)

	cleanupFuncs := []func(){sessions.close}
	fail := func(err error) (*App, error) {
		for _, cleanup := range cleanupFuncs {
			cleanup()
		}
		return nil, err
	}

	backendClient, err := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize backend client: %w", err))
	}

	bus := event.NewBus()
	manager := session.NewManager(sessions.store, session.Options{
		TTL: cfg.SessionTTL,
		Bus: bus,
		Cookie: session.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			Domain: cfg.SessionCookieDomain,
		},
	})

	flight := &singleflight.Group{}
	guards := map[model.Role]*guard.Guard{}
	for _, role := range []model.Role{model.RoleLearner, model.RoleMentor, model.RoleAdmin} {
		g, err := guard.New(role, guard.Deps{
			Sessions: manager,
			Profiles: backendClient,
			Flight:   flight,
			Bus:      bus,
			Logger:   slog.Default(),
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize %s guard: %w", role, err))
		}
		guards[role] = g
	}

	pages, err := handler.NewPageHandler(cfg.UIOriginURL, cfg.SessionCookieName)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize page proxy: %w", err))
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	cleanupFuncs = append(cleanupFuncs, cancelRun)

	hub := websocket.NewHub(bus)
	go hub.Run(runCtx)

	if sessions.sweeper != nil {
		go sweepExpired(runCtx, sessions.sweeper, cfg.SessionSweepEvery)
	}

	inspector := token.New()
	appRouter := router.New(cfg, router.Handlers{
		Auth: handler.NewAuthHandler(backendClient, manager, inspector),
		Session: handler.NewSessionHandler(manager, handler.SessionHandlerOptions{
			Inspector:   inspector,
			WarnMinutes: cfg.ExpiryWarningMinutes,
			Bus:         bus,
			Stream:      hub,
			Upgrader:    websocket.Upgrader(cfg.CORSOrigins),
		}),
		Module: handler.NewModuleHandler(backendClient.ModuleProxy("/api/v1/admin/modules")),
		Page:   pages,
		Health: handler.NewHealthHandler(cfg.SessionStore, sessions.health),
		Docs:   handler.NewDocsHandler(docs.OpenAPI),
	}, router.Gates{
		Learner:   guards[model.RoleLearner],
		Mentor:    guards[model.RoleMentor],
		Admin:     guards[model.RoleAdmin],
		Tokens:    manager,
		Inspector: inspector,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: cleanupFuncs}, nil
}

func openSessionBackend(ctx context.Context, cfg *config.Config) (sessionBackend, error) {
	switch cfg.SessionStore {
	case config.StorePostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return sessionBackend{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return sessionBackend{}, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		repo := repository.NewSessionRepository(db.Pool)
		return sessionBackend{store: repo, sweeper: repo, health: db.Health, close: db.Close}, nil

	case config.StoreRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repo := repository.NewRedisSessionRepository(client)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			_ = client.Close()
			return sessionBackend{}, fmt.Errorf("failed to connect to redis: %w", err)
		}

		return sessionBackend{
			store:  repo,
			health: repo.Ping,
			close:  func() { _ = client.Close() },
		}, nil
	}

	store := session.NewMemoryStore()
	return sessionBackend{store: store, sweeper: store, close: func() {}}, nil
}

func sweepExpired(ctx context.Context, sweeper session.Sweeper, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.CleanExpired(ctx)
			if err != nil {
				slog.Warn("expired session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired sessions removed", "count", removed)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Stores close after in-flight requests are done with them.
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
