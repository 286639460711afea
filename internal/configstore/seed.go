package configstore

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ParseSeed flattens a nested YAML mapping into leaf nodes keyed by
// store path. Scalar values become leaves; mappings become interior
// nodes. Used to bootstrap a MemStore from a single seed file.
func ParseSeed(data []byte) (map[string][]byte, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("malformed config seed: %w", err)
	}

	leaves := make(map[string][]byte)
	if err := flatten("", tree, leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

// SeedMemStore builds a MemStore pre-populated from a YAML seed.
func SeedMemStore(data []byte) (*MemStore, error) {
	leaves, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	store := NewMemStore()

	// Deterministic order keeps startup logs stable.
	paths := make([]string, 0, len(leaves))
	for path := range leaves {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		store.Put(path, leaves[path])
	}
	return store, nil
}

func flatten(prefix string, node map[string]any, out map[string][]byte) error {
	for key, value := range node {
		path := prefix + "/" + key
		switch v := value.(type) {
		case map[string]any:
			if err := flatten(path, v, out); err != nil {
				return err
			}
		case nil:
			out[path] = []byte{}
		case string:
			out[path] = []byte(v)
		case bool, int, int64, float64:
			out[path] = []byte(fmt.Sprintf("%v", v))
		default:
			return fmt.Errorf("config seed node %s has unsupported type %T", path, value)
		}
	}
	return nil
}
