// Package configstore abstracts the hierarchical configuration store
// the gateway learns its API surface from. The transport is a seam:
// the file store maps a directory tree to store paths and watches it
// with fsnotify, the memory store backs tests and seeded deployments.
//
// Paths are canonical absolute strings ("/" + segment + ...). Only
// leaf nodes carry data; interior nodes exist to group children.
package configstore

import "context"

// EventType discriminates watch events.
type EventType int

const (
	// NodeUpdated fires when a leaf is created or its data changes.
	NodeUpdated EventType = iota
	// NodeRemoved fires when a leaf is deleted.
	NodeRemoved
)

func (t EventType) String() string {
	if t == NodeRemoved {
		return "node-removed"
	}
	return "node-updated"
}

// Event is a single mutation observed under a watched subtree.
type Event struct {
	Type EventType
	Path string
	Data []byte
}

// Store is the configuration store contract. ReadTree returns every
// leaf under root; WatchTree installs a recursive watch and streams
// mutations until ctx is done. Re-watching after resubscription must
// be idempotent.
type Store interface {
	ReadTree(ctx context.Context, root string) (map[string][]byte, error)
	WatchTree(ctx context.Context, root string) (<-chan Event, error)
	Close() error
}
