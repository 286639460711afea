package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileStore maps a directory tree to store paths: a regular file is a
// leaf node, a directory an interior node. The store path of
// <dir>/prod/orders/endpoints/users/path is
// /prod/orders/endpoints/users/path.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	watched map[string]bool // directories already added to the fs watcher
	watcher *fsnotify.Watcher
	subs    []chan Event
	stopCh  chan struct{}
	started bool
}

// NewFileStore creates a store rooted at dir. The directory must
// exist; an unreachable store is a fatal startup condition for the
// caller.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("config store directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config store path %s is not a directory", dir)
	}
	return &FileStore{
		dir:     dir,
		logger:  logger,
		watched: make(map[string]bool),
		stopCh:  make(chan struct{}),
	}, nil
}

// ReadTree traverses the subtree under root, returning leaf data
// keyed by store path. Unreadable nodes are logged and skipped.
func (s *FileStore) ReadTree(ctx context.Context, root string) (map[string][]byte, error) {
	base := s.fsPath(root)
	tree := make(map[string][]byte)

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable config node",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable config node",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}
		tree[s.storePath(path)] = data
		return nil
	})
	if os.IsNotExist(err) {
		// A missing subtree is tolerated, same as a missing node.
		return tree, nil
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// WatchTree installs a recursive watch under root. All subscribers
// share one fsnotify watcher; directories are tracked in a set so
// re-watching after a children-changed event stays idempotent.
func (s *FileStore) WatchTree(ctx context.Context, root string) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.watcher = w
	}

	if err := s.watchDirsLocked(s.fsPath(root)); err != nil {
		return nil, err
	}

	ch := make(chan Event, 64)
	s.subs = append(s.subs, ch)

	if !s.started {
		s.started = true
		go s.watchLoop()
	}
	go func() {
		<-ctx.Done()
		s.unsubscribe(ch)
	}()

	return ch, nil
}

// Close stops the watcher and closes all subscriber channels.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileStore) watchDirsLocked(base string) error {
	return filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // tolerate nodes that vanished mid-walk
		}
		if info.IsDir() && !s.watched[path] {
			if err := s.watcher.Add(path); err != nil {
				s.logger.Warn("failed to watch config directory",
					zap.String("path", path),
					zap.Error(err),
				)
				return nil
			}
			s.watched[path] = true
		}
		return nil
	})
}

func (s *FileStore) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleFsEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("config store watcher error", zap.Error(err))
		case <-s.stopCh:
			return
		}
	}
}

func (s *FileStore) handleFsEvent(event fsnotify.Event) {
	path := event.Name
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// Children changed: re-watch the new subtree and emit
			// updates for any leaves it already contains.
			s.mu.Lock()
			_ = s.watchDirsLocked(path)
			s.mu.Unlock()
			leaves, err := s.ReadTree(context.Background(), s.storePath(path))
			if err != nil {
				return
			}
			for p, data := range leaves {
				s.publish(Event{Type: NodeUpdated, Path: p, Data: data})
			}
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to re-read changed config node",
				zap.String("path", path),
				zap.Error(err),
			)
			return
		}
		s.publish(Event{Type: NodeUpdated, Path: s.storePath(path), Data: data})

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.mu.Lock()
		delete(s.watched, path)
		s.mu.Unlock()
		s.publish(Event{Type: NodeRemoved, Path: s.storePath(path)})
	}
}

// publish delivers event to every subscriber in registration order.
// Sends block rather than drop: per-path ordering is part of the store
// contract, and subscribers drain their channel until it closes.
// Holding the lock also serializes sends with the channel closes in
// unsubscribe and Close.
func (s *FileStore) publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		ch <- event
	}
}

func (s *FileStore) unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *FileStore) fsPath(storePath string) string {
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(storePath, "/")))
}

func (s *FileStore) storePath(fsPath string) string {
	rel, err := filepath.Rel(s.dir, fsPath)
	if err != nil {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}
