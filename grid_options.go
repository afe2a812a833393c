package readygate

import (
	"errors"
	"fmt"
)

// gridConfig holds configuration during endpoint grid construction.
type gridConfig struct {
	template   string
	dimensions map[string][]string
}

// GridOption configures endpoint grid generation.
// GridOption implements the functional options pattern for [NewEndpointGrid].
type GridOption func(*gridConfig) error

// WithTemplate sets the target template for endpoint generation.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithTemplate("redis-{{.shard}}.cache:6379")
//
// Returns an error if the template string is empty.
func WithTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("target template required")
		}
		cfg.template = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the endpoint combinations.
//
// Example:
//
//	WithDimensions(map[string][]string{
//	    "svc": {"users", "orders"},
//	    "ns":  {"prod", "staging"},
//	})
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}
