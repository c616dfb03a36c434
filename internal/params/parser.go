package params

import (
	"fmt"
	"strings"
)

// ParseKeyValuePairs converts "key=value" strings into a map. The value may
// itself contain '='.
//
//	params, err := ParseKeyValuePairs([]string{"DB=ANALYTICS_DEV", "WAREHOUSE=XS"})
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --param DB=ANALYTICS_DEV)", pair)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q", pair)
		}

		result[key] = value
	}

	return result, nil
}
