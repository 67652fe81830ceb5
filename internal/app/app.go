package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/studychat-server/internal/config"
	"github.com/vovakirdan/studychat-server/internal/core"
	"github.com/vovakirdan/studychat-server/internal/files"
	"github.com/vovakirdan/studychat-server/internal/store"
	"github.com/vovakirdan/studychat-server/internal/store/memory"
	"github.com/vovakirdan/studychat-server/internal/store/redis"
	"github.com/vovakirdan/studychat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/studychat-server/internal/transport/http"
)

const uploadPrefix = "/uploads"

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.MessageStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.StoreDriver).Msg("message store initialized")

	storage, err := files.NewStorage(cfg.UploadDir, uploadPrefix, cfg.MaxUploadBytes)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init uploads: %w", err)
	}

	hub := core.NewHub(st, core.HubConfig{
		PoolSize:      cfg.IdentityPoolSize,
		FallbackRange: cfg.IdentityFallbackMax,
		Assistant: core.ResponderConfig{
			Delay:   cfg.AssistantDelay,
			Trigger: cfg.AssistantTrigger,
		},
	}, logger)
	server := transporthttp.NewServer(hub, st, storage, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.MessageStore, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return sqlite.New(cfg.DatabasePath)
	case config.StoreRedis:
		return redis.New(ctx, redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
			Key:  cfg.RedisKey,
		})
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled or either fails.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	// Connections are drained; stop the hub so pending assistant replies are cancelled.
	stopHub()
	<-a.hub.Done()
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
