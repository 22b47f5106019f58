package app

import (
	"context"
	stdsync "sync"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/cache"
	"github.com/msantori/syncline/internal/config"
	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/remote"
	intsync "github.com/msantori/syncline/internal/sync"
	"go.uber.org/zap"
)

// MessageCollection returns the collection key of one chat's message thread.
func MessageCollection(chatID string) string { return "messages:" + chatID }

// MemberCollection returns the collection key of one group's roster.
func MemberCollection(groupID string) string { return "members:" + groupID }

// Registry creates and owns the per-conversation coordinators. A thread or
// roster coordinator is created on first open and torn down with the app.
type Registry struct {
	db     *cache.DB
	client *remote.Client
	bus    *bus.Bus
	cfg    *config.Config
	logger *zap.Logger

	mu       stdsync.Mutex
	messages map[string]*intsync.Coordinator[entity.Message]
	members  map[string]*intsync.Coordinator[entity.Member]
}

// NewRegistry creates an empty registry.
func NewRegistry(db *cache.DB, client *remote.Client, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *Registry {
	return &Registry{
		db:       db,
		client:   client,
		bus:      b,
		cfg:      cfg,
		logger:   logger,
		messages: make(map[string]*intsync.Coordinator[entity.Message]),
		members:  make(map[string]*intsync.Coordinator[entity.Member]),
	}
}

// OpenMessages returns the coordinator for one chat's messages, starting it
// on first open.
func (r *Registry) OpenMessages(ctx context.Context, chatID string) *intsync.Coordinator[entity.Message] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.messages[chatID]; ok {
		return c
	}
	rc := remote.NewCollection[entity.Message](r.client)
	c := intsync.NewCoordinator(MessageCollection(chatID), intsync.Deps[entity.Message]{
		Cache:   cache.NewCollection[entity.Message](r.db, r.logger),
		Fetcher: rc,
		Events:  rc,
		Mutator: rc,
		Bus:     r.bus,
		Logger:  r.logger,
	}, intsync.Options{PageSize: r.cfg.PageSizeOrDefault()})
	c.Start(ctx)
	r.messages[chatID] = c
	return c
}

// CloseMessages tears down one chat's message coordinator, if open.
func (r *Registry) CloseMessages(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.messages[chatID]; ok {
		c.Close()
		delete(r.messages, chatID)
	}
}

// OpenMembers returns the coordinator for one group's roster, starting it on
// first open.
func (r *Registry) OpenMembers(ctx context.Context, groupID string) *intsync.Coordinator[entity.Member] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.members[groupID]; ok {
		return c
	}
	rc := remote.NewCollection[entity.Member](r.client)
	c := intsync.NewCoordinator(MemberCollection(groupID), intsync.Deps[entity.Member]{
		Cache:   cache.NewCollection[entity.Member](r.db, r.logger),
		Fetcher: rc,
		Events:  rc,
		Mutator: rc,
		Bus:     r.bus,
		Logger:  r.logger,
	}, intsync.Options{PageSize: r.cfg.PageSizeOrDefault()})
	c.Start(ctx)
	r.members[groupID] = c
	return c
}

// CloseMembers tears down one group's roster coordinator, if open.
func (r *Registry) CloseMembers(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.members[groupID]; ok {
		c.Close()
		delete(r.members, groupID)
	}
}

// CloseAll tears down every owned coordinator.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.messages {
		c.Close()
		delete(r.messages, id)
	}
	for id, c := range r.members {
		c.Close()
		delete(r.members, id)
	}
}
