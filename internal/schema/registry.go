// Package schema compiles the JSON Schemas declared in the
// configuration store and validates write payloads against them. The
// shared base-types schema is registered as a local compiler resource
// other schemas reference by name; enumRef placeholders are replaced
// with concrete enum arrays at build time.
package schema

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"datagate/internal/configcache"
	"datagate/pkg/errors"
)

// BaseTypesName is the schema carrying shared definitions.
const BaseTypesName = "base-types"

func resourceURL(name string) string {
	return "mem://schemas/" + name + ".json"
}

type snapshot struct {
	schemas  map[string]*jsonschema.Schema
	bindings map[string][]Binding
}

// Registry holds the compiled schema snapshot. Rebuild compiles the
// whole schemas subtree into a fresh snapshot and publishes it
// atomically; a failed rebuild keeps the previous snapshot serving.
type Registry struct {
	schemasPath string
	cache       *configcache.Cache
	enums       EnumSource
	logger      *zap.Logger

	snapshot atomic.Value // *snapshot
}

// NewRegistry creates a registry over the schemas subtree rooted at
// schemasPath.
func NewRegistry(schemasPath string, cache *configcache.Cache, enums EnumSource, logger *zap.Logger) *Registry {
	r := &Registry{
		schemasPath: schemasPath,
		cache:       cache,
		enums:       enums,
		logger:      logger,
	}
	r.snapshot.Store(&snapshot{
		schemas:  map[string]*jsonschema.Schema{},
		bindings: map[string][]Binding{},
	})
	return r
}

// Rebuild compiles every schema under the subtree. On error the
// previous snapshot stays published.
func (r *Registry) Rebuild() error {
	next, err := r.build()
	if err != nil {
		r.logger.Error("schema rebuild failed, keeping previous snapshot", zap.Error(err))
		return err
	}
	r.snapshot.Store(next)
	r.logger.Info("schema registry rebuilt", zap.Int("schemas", len(next.schemas)))
	return nil
}

func (r *Registry) build() (*snapshot, error) {
	compiler := jsonschema.NewCompiler()
	next := &snapshot{
		schemas:  make(map[string]*jsonschema.Schema),
		bindings: make(map[string][]Binding),
	}

	names := r.cache.Children(r.schemasPath)
	var compile []string
	for _, name := range names {
		body, ok := r.cache.Get(r.schemasPath + "/" + name)
		if !ok {
			continue
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("schema %q is not valid JSON: %w", name, err)
		}

		var bindings []Binding
		doc, err = augment(doc, nil, r.enums, &bindings)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		if err := compiler.AddResource(resourceURL(name), doc); err != nil {
			return nil, fmt.Errorf("schema %q failed to register: %w", name, err)
		}

		next.bindings[name] = bindings
		if name != BaseTypesName {
			compile = append(compile, name)
		}
	}

	for _, name := range compile {
		sch, err := compiler.Compile(resourceURL(name))
		if err != nil {
			return nil, fmt.Errorf("schema %q failed to compile: %w", name, err)
		}
		next.schemas[name] = sch
	}
	return next, nil
}

// Has reports whether a compiled schema exists under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.snapshot.Load().(*snapshot).schemas[name]
	return ok
}

// Bindings returns the enum field bindings recorded for name.
func (r *Registry) Bindings(name string) []Binding {
	return r.snapshot.Load().(*snapshot).bindings[name]
}

// Validate checks instance against the named schema. A missing schema
// is a configuration error; validation failures carry one detail per
// violation.
func (r *Registry) Validate(name string, instance any) error {
	sch, ok := r.snapshot.Load().(*snapshot).schemas[name]
	if !ok {
		return errors.New(errors.KindConfigMissing,
			fmt.Sprintf("schema %q is not registered", name))
	}
	if err := sch.Validate(instance); err != nil {
		return errors.NewWithDetails(errors.KindSchemaValidationFailed,
			fmt.Sprintf("document failed validation against schema %q", name),
			validationDetails(err))
	}
	return nil
}

// validationDetails flattens the validator's multi-line report into
// one detail per violation.
func validationDetails(err error) []string {
	lines := strings.Split(err.Error(), "\n")
	var details []string
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		details = append(details, line)
	}
	if len(details) == 0 {
		details = []string{err.Error()}
	}
	return details
}
