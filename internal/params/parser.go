package params

import (
	"fmt"
	"strings"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// ParseKeyValuePairs converts a slice of "key=value" strings into a map.
// Only the first "=" separates key from value.
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not in key=value format: %w", pair, crmingest.ErrInvalidConfig)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%q has an empty key: %w", pair, crmingest.ErrInvalidConfig)
		}
		result[key] = strings.TrimSpace(value)
	}

	return result, nil
}

// ParseAliases parses "entity:Source header=column" values.
//
//	ParseAliases([]string{"estimates:Sales tax=tax"})
//	// map[EntityEstimates]{"Sales tax": "tax"}
func ParseAliases(values []string) (map[crmingest.Entity]map[string]string, error) {
	out := make(map[crmingest.Entity]map[string]string)
	for _, v := range values {
		name, pair, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("alias %q: expected entity:header=column: %w", v, crmingest.ErrInvalidConfig)
		}
		e, err := crmingest.ParseEntity(name)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", v, err)
		}
		kv, err := ParseKeyValuePairs([]string{pair})
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", v, err)
		}
		if out[e] == nil {
			out[e] = make(map[string]string)
		}
		for from, to := range kv {
			if to == "" {
				return nil, fmt.Errorf("alias %q has an empty column: %w", v, crmingest.ErrInvalidConfig)
			}
			out[e][from] = to
		}
	}
	return out, nil
}

// MergeAliases returns base overlaid with over. Neither input is modified.
func MergeAliases(base, over map[crmingest.Entity]map[string]string) map[crmingest.Entity]map[string]string {
	out := make(map[crmingest.Entity]map[string]string, len(base)+len(over))
	for _, src := range []map[crmingest.Entity]map[string]string{base, over} {
		for e, m := range src {
			if out[e] == nil {
				out[e] = make(map[string]string, len(m))
			}
			for from, to := range m {
				out[e][from] = to
			}
		}
	}
	return out
}
