// Package attrs reads values back out of slog-style key/value argument lists,
// so one attribute list can feed both a log line and an audit event.
package attrs

import "fmt"

// ExtractString returns the value for key in a [k1, v1, k2, v2, ...] list.
// Strings and fmt.Stringers are returned as text; anything else, or a missing
// key, yields "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
		return ""
	}
	return ""
}

// Pick collects the non-empty values of keys into a map. It returns nil when
// none are present.
func Pick(attrs []any, keys ...string) map[string]string {
	var out map[string]string
	for _, key := range keys {
		v := ExtractString(attrs, key)
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(keys))
		}
		out[key] = v
	}
	return out
}
