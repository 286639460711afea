package configcache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"datagate/internal/configstore"
)

// Syncer keeps a Cache aligned with the store and invokes reload
// hooks when a watched subtree changes. Events are applied in arrival
// order; per-path ordering follows the store's event order.
type Syncer struct {
	store  configstore.Store
	cache  *Cache
	logger *zap.Logger

	mu    sync.Mutex
	hooks []subtreeHook
}

type subtreeHook struct {
	prefix string
	fn     func()
}

// NewSyncer creates a syncer over store and cache.
func NewSyncer(store configstore.Store, cache *Cache, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, cache: cache, logger: logger}
}

// OnSubtree registers fn to run after any event under prefix has been
// applied to the cache. Hooks run on the sync goroutine, so they must
// be quick; heavy work belongs behind a snapshot swap.
func (s *Syncer) OnSubtree(prefix string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, subtreeHook{prefix: prefix, fn: fn})
}

// Initialize reads the whole tree under root into the cache. Failure
// here is fatal for the caller: a gateway without configuration has
// no API surface.
func (s *Syncer) Initialize(ctx context.Context, root string) error {
	tree, err := s.store.ReadTree(ctx, root)
	if err != nil {
		return err
	}
	s.cache.Load(tree)
	s.logger.Info("configuration tree loaded",
		zap.String("root", root),
		zap.Int("leaves", len(tree)),
	)
	return nil
}

// Start watches root and applies events until ctx is done. Steady
// state errors are logged and survived; the watch is the store's
// responsibility to keep alive.
func (s *Syncer) Start(ctx context.Context, root string) error {
	events, err := s.store.WatchTree(ctx, root)
	if err != nil {
		return err
	}

	go func() {
		for event := range events {
			s.cache.Apply(event)
			s.logger.Debug("configuration event applied",
				zap.String("type", event.Type.String()),
				zap.String("path", event.Path),
			)
			s.runHooks(event.Path)
		}
	}()
	return nil
}

func (s *Syncer) runHooks(path string) {
	s.mu.Lock()
	hooks := make([]subtreeHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		if path == hook.prefix || strings.HasPrefix(path, hook.prefix+"/") {
			hook.fn()
		}
	}
}
