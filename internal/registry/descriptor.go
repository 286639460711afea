// Package registry builds and serves the endpoint routing table from
// the configuration store. Rebuilds produce a fresh immutable
// snapshot that is published atomically; the request path only ever
// sees one coherent snapshot.
package registry

import (
	"strings"

	"datagate/internal/filter"
)

// Kind is the endpoint flavour.
type Kind string

const (
	KindREST    Kind = "REST"
	KindGraphQL Kind = "GRAPHQL"
)

// MaxBulkSize bounds sequence-based pagination pages.
const MaxBulkSize = 10000

// DefaultBulkSize applies when an endpoint does not configure one.
const DefaultBulkSize = 100

// EndpointDescriptor maps a (method, path) pair to a backend
// collection plus per-endpoint policy. Immutable after registration.
type EndpointDescriptor struct {
	Name            string
	Path            string
	Method          string
	Collection      string
	Kind            Kind
	SequenceEnabled bool
	DefaultBulkSize int
	WriteMethods    map[string]bool
	FilterConfig    *filter.Config
	SubEntityFields []string
	SchemaName      string
	NestedDocument  bool
}

// CacheKey is the snapshot key: UPPER(method) + ":" + path.
func (d *EndpointDescriptor) CacheKey() string {
	return Key(d.Method, d.Path)
}

// Key builds a snapshot key from a method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + ":" + path
}

// AllowsWrite reports whether method is a configured write method for
// this endpoint.
func (d *EndpointDescriptor) AllowsWrite(method string) bool {
	return d.WriteMethods[strings.ToUpper(method)]
}
