package configstore

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-process Store. It backs tests and deployments
// bootstrapped from a seed file, and supports programmatic mutation
// so config changes can be exercised without a filesystem.
type MemStore struct {
	mu     sync.RWMutex
	nodes  map[string][]byte
	subs   []memSub
	closed bool
}

type memSub struct {
	root string
	ch   chan Event
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string][]byte)}
}

// ReadTree returns all leaves at or under root.
func (s *MemStore) ReadTree(_ context.Context, root string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree := make(map[string][]byte)
	for path, data := range s.nodes {
		if underTree(path, root) {
			cp := make([]byte, len(data))
			copy(cp, data)
			tree[path] = cp
		}
	}
	return tree, nil
}

// WatchTree streams mutations at or under root until ctx is done.
func (s *MemStore) WatchTree(ctx context.Context, root string) (<-chan Event, error) {
	ch := make(chan Event, 64)

	s.mu.Lock()
	s.subs = append(s.subs, memSub{root: root, ch: ch})
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.ch == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}()

	return ch, nil
}

// Close closes all subscriber channels.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	return nil
}

// Put creates or updates a leaf and notifies watchers.
func (s *MemStore) Put(path string, data []byte) {
	s.mu.Lock()
	s.nodes[path] = data
	subs := s.matchingSubs(path)
	s.mu.Unlock()

	for _, ch := range subs {
		ch <- Event{Type: NodeUpdated, Path: path, Data: data}
	}
}

// Delete removes a leaf and notifies watchers.
func (s *MemStore) Delete(path string) {
	s.mu.Lock()
	delete(s.nodes, path)
	subs := s.matchingSubs(path)
	s.mu.Unlock()

	for _, ch := range subs {
		ch <- Event{Type: NodeRemoved, Path: path}
	}
}

func (s *MemStore) matchingSubs(path string) []chan Event {
	var out []chan Event
	for _, sub := range s.subs {
		if underTree(path, sub.root) {
			out = append(out, sub.ch)
		}
	}
	return out
}

func underTree(path, root string) bool {
	if root == "/" || root == "" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}
