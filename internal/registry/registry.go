package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"datagate/internal/configcache"
	"datagate/internal/filter"
	"datagate/pkg/errors"
)

// Registry serves endpoint lookups from an immutable snapshot and
// rebuilds it from the config cache when the endpoints subtree
// changes.
type Registry struct {
	endpointsPath string
	cache         *configcache.Cache
	logger        *zap.Logger

	snapshot atomic.Value // map[string]*EndpointDescriptor

	// OnRebuild, when set, observes successful rebuilds.
	OnRebuild func(endpointCount int)
}

// New creates a registry over the endpoints subtree rooted at
// endpointsPath. Call Rebuild before serving lookups.
func New(endpointsPath string, cache *configcache.Cache, logger *zap.Logger) *Registry {
	r := &Registry{
		endpointsPath: endpointsPath,
		cache:         cache,
		logger:        logger,
	}
	r.snapshot.Store(map[string]*EndpointDescriptor{})
	return r
}

// Find resolves a descriptor by relative path and method. Matching is
// exact; there is no parameterised routing.
func (r *Registry) Find(path, method string) (*EndpointDescriptor, bool) {
	snap := r.snapshot.Load().(map[string]*EndpointDescriptor)
	d, ok := snap[Key(method, path)]
	return d, ok
}

// Snapshot returns the active routing table.
func (r *Registry) Snapshot() map[string]*EndpointDescriptor {
	return r.snapshot.Load().(map[string]*EndpointDescriptor)
}

// Rebuild constructs a new snapshot from the cache in one pass and
// publishes it atomically. On error the previous snapshot stays
// active.
func (r *Registry) Rebuild() error {
	snap, err := r.build()
	if err != nil {
		r.logger.Error("endpoint registry rebuild failed, keeping previous snapshot",
			zap.Error(err),
		)
		return err
	}

	r.snapshot.Store(snap)
	r.logger.Info("endpoint registry rebuilt",
		zap.Int("endpoints", len(snap)),
	)
	if r.OnRebuild != nil {
		r.OnRebuild(len(snap))
	}
	return nil
}

func (r *Registry) build() (map[string]*EndpointDescriptor, error) {
	names := r.cache.Children(r.endpointsPath)
	sort.Strings(names)

	snap := make(map[string]*EndpointDescriptor, len(names))
	for _, name := range names {
		d, err := r.buildDescriptor(name)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("endpoint %q", name))
		}
		key := d.CacheKey()
		if dup, ok := snap[key]; ok {
			return nil, errors.New(errors.KindConfigMissing,
				fmt.Sprintf("endpoints %q and %q both register %s", dup.Name, d.Name, key))
		}
		snap[key] = d
	}
	return snap, nil
}

func (r *Registry) buildDescriptor(name string) (*EndpointDescriptor, error) {
	base := r.endpointsPath + "/" + name

	path := r.cache.GetString(base+"/path", "")
	if path == "" {
		return nil, errors.New(errors.KindConfigMissing, "missing required leaf 'path'")
	}
	if strings.Contains(path, "{") || strings.Contains(path, ":") {
		return nil, errors.New(errors.KindConfigMissing,
			fmt.Sprintf("path %q contains variable segments; only literal segments are supported", path))
	}
	method := strings.ToUpper(r.cache.GetString(base+"/method", ""))
	if method == "" {
		return nil, errors.New(errors.KindConfigMissing, "missing required leaf 'method'")
	}
	collection := r.cache.GetString(base+"/collection", "")
	if collection == "" {
		return nil, errors.New(errors.KindConfigMissing, "missing required leaf 'collection'")
	}

	kind := Kind(strings.ToUpper(r.cache.GetString(base+"/type", string(KindREST))))
	if kind != KindREST && kind != KindGraphQL {
		return nil, errors.New(errors.KindConfigMissing,
			fmt.Sprintf("unknown endpoint type %q", kind))
	}

	bulkSize := r.cache.GetInt(base+"/defaultBulkSize", DefaultBulkSize)
	if bulkSize <= 0 || bulkSize > MaxBulkSize {
		return nil, errors.New(errors.KindConfigMissing,
			fmt.Sprintf("defaultBulkSize %d outside [1, %d]", bulkSize, MaxBulkSize))
	}

	d := &EndpointDescriptor{
		Name:            name,
		Path:            path,
		Method:          method,
		Collection:      collection,
		Kind:            kind,
		SequenceEnabled: r.cache.GetBool(base+"/sequenceEnabled", false),
		DefaultBulkSize: bulkSize,
		WriteMethods:    parseWriteMethods(r.cache.GetString(base+"/writeMethods", "")),
		SubEntityFields: splitList(r.cache.GetString(base+"/subEntityFields", "")),
		SchemaName:      r.cache.GetString(base+"/schemaName", ""),
		NestedDocument:  r.cache.GetBool(base+"/nestedDocument", false),
		FilterConfig:    r.buildFilterConfig(base + "/filterConfig"),
	}
	return d, nil
}

var allowedWriteMethods = map[string]bool{
	"POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

func parseWriteMethods(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range splitList(raw) {
		m = strings.ToUpper(m)
		if allowedWriteMethods[m] {
			out[m] = true
		}
	}
	return out
}

func (r *Registry) buildFilterConfig(base string) *filter.Config {
	cfg := &filter.Config{
		Enabled:        r.cache.GetBool(base+"/enabled", true),
		FieldOperators: make(map[string][]string),
	}
	for _, field := range r.cache.Children(base + "/fields") {
		ops := splitList(r.cache.GetString(base+"/fields/"+field, ""))
		if len(ops) > 0 {
			cfg.FieldOperators[field] = ops
		}
	}
	return cfg
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
