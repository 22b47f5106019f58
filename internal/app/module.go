// Package app composes the engine: every collaborator is explicitly
// constructed and injected here, so per-collection instances stay isolated
// and testable.
package app

import (
	"context"
	"time"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/cache"
	"github.com/msantori/syncline/internal/config"
	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/lock"
	"github.com/msantori/syncline/internal/logging"
	"github.com/msantori/syncline/internal/profile"
	"github.com/msantori/syncline/internal/remote"
	intsync "github.com/msantori/syncline/internal/sync"
	"github.com/msantori/syncline/internal/typing"
	"github.com/msantori/syncline/internal/view"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ChatCollection is the collection key of the singleton chat list.
const ChatCollection = "chats"

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("syncline",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideCacheDB,
			provideRemoteClient,
			provideChatCoordinator,
			provideChatObserver,
			provideTypingTracker,
			NewRegistry,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		// A missing config is a fresh install, not an error.
		return &config.Config{}, nil
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.LockPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideCacheDB(p Params, logger *zap.Logger) (*cache.DB, error) {
	dbPath := profile.CacheDBPath(p.ProfileName)
	db, err := cache.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("cache migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("cache migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRemoteClient(cfg *config.Config, logger *zap.Logger) *remote.Client {
	return remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, remote.WithLogger(logger))
}

func provideChatCoordinator(db *cache.DB, client *remote.Client, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *intsync.Coordinator[entity.Chat] {
	rc := remote.NewCollection[entity.Chat](client)
	return intsync.NewCoordinator(ChatCollection, intsync.Deps[entity.Chat]{
		Cache:   cache.NewCollection[entity.Chat](db, logger),
		Fetcher: rc,
		Events:  rc,
		Mutator: rc,
		Bus:     b,
		Logger:  logger,
	}, intsync.Options{PageSize: cfg.PageSizeOrDefault()})
}

func provideChatObserver(coord *intsync.Coordinator[entity.Chat], b *bus.Bus, cfg *config.Config, logger *zap.Logger) *view.Observer[entity.Chat] {
	v := view.New(coord.Store(), coord.State, view.ChatListConfig(view.ChatFilter{}))
	return view.NewObserver(v, b, ChatCollection, cfg.SearchDebounce(), logger)
}

func provideTypingTracker(b *bus.Bus, cfg *config.Config) *typing.Tracker {
	return typing.NewTracker(b, cfg.TypingExpiry())
}

func registerLifecycle(lc fx.Lifecycle, chats *intsync.Coordinator[entity.Chat], reg *Registry, tr *typing.Tracker, lk *lock.Lock, cfg *config.Config, logger *zap.Logger) {
	var stopRefresh context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			runCtx := context.Background()
			chats.Start(runCtx)

			// Periodic chat-list refresh lives outside the engine:
			// the coordinator only refreshes when told to.
			var tickCtx context.Context
			tickCtx, stopRefresh = context.WithCancel(runCtx)
			go func() {
				ticker := time.NewTicker(cfg.RefreshInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						chats.Refresh(tickCtx)
					case <-tickCtx.Done():
						return
					}
				}
			}()

			logger.Info("engine started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if stopRefresh != nil {
				stopRefresh()
			}
			tr.Stop()
			reg.CloseAll()
			chats.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("engine stopped")
			return nil
		},
	})
}
