package filter

// Config is the per-endpoint filter policy: which operators each
// field may be filtered with. The primary key is always filterable
// with equality, regardless of configuration.
type Config struct {
	Enabled        bool
	FieldOperators map[string][]string
}

// primaryKeyField is always filterable with $eq.
const primaryKeyField = "_id"

// AllowedOperators returns the operator symbols permitted for field.
// A disabled config permits nothing beyond the primary-key carve-out.
func (c *Config) AllowedOperators(field string) []string {
	var allowed []string
	if c != nil && c.Enabled && c.FieldOperators != nil {
		allowed = c.FieldOperators[field]
	}
	if field == primaryKeyField && !contains(allowed, OpEq) {
		allowed = append(append([]string{}, allowed...), OpEq)
	}
	return allowed
}

// Filterable reports whether field may appear in a filter at all.
func (c *Config) Filterable(field string) bool {
	return len(c.AllowedOperators(field)) > 0
}

// Allows reports whether operator is permitted for field.
func (c *Config) Allows(field, operator string) bool {
	return contains(c.AllowedOperators(field), operator)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
