package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/stay-portal/internal/api"
	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/config"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/repository"
	"github.com/dom/stay-portal/internal/repository/memory"
	"github.com/dom/stay-portal/internal/repository/postgres"
	"github.com/dom/stay-portal/internal/repository/redis"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// workspaceIdle is how long an untouched workspace is kept in memory
const workspaceIdle = 2 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("env", cfg.Environment).
		Str("port", cfg.Port).
		Str("api", cfg.APIBaseURL).
		Str("session_backend", cfg.SessionBackend).
		Msg("Starting portal")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize session storage
	repos, closeRepos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.SessionBackend).Msg("Failed to open session storage")
	}
	defer closeRepos()

	sealer, err := newSealer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SESSION_KEY")
	}
	sessions := session.NewManager(repos.Session, sealer, cfg.SessionTTL)
	go sessions.RunJanitor(ctx, cfg.JanitorPeriod)

	// Initialize WebSocket hub
	hub := websocket.NewHub("/")
	go hub.Run()
	sessions.Subscribe(hub.SessionCleared)

	// Initialize services
	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	services := service.NewServices(client, sessions, cfg)
	go pruneWorkspaces(ctx, services.Workspaces)

	views, err := render.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	// Initialize router
	router := api.NewRouter(services, hub, views, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openRepositories picks the session store named by SESSION_BACKEND
func openRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, func(), error) {
	switch cfg.SessionBackend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRepositories(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}, nil

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewRepositories(client), func() { client.Close() }, nil

	default:
		return memory.NewRepositories(), func() {}, nil
	}
}

func newSealer(cfg *config.Config) (*session.Sealer, error) {
	if cfg.SessionKey == "" {
		log.Warn().Msg("SESSION_KEY not set, sessions will not survive a restart")
		return session.NewRandomSealer()
	}
	return session.NewSealer(cfg.SessionKey)
}

func pruneWorkspaces(ctx context.Context, ws *service.Workspaces) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ws.Prune(time.Now().Add(-workspaceIdle)); n > 0 {
				log.Debug().Int("pruned", n).Int("remaining", ws.Len()).Msg("Pruned idle workspaces")
			}
		}
	}
}
