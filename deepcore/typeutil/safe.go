// Package typeutil provides safe type assertion helpers for working with
// oracle JSON output and persisted state dicts, using the comma-ok idiom
// so malformed values never panic.
package typeutil

// SafeMapStringAny safely asserts value to map[string]any.
func SafeMapStringAny(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// SafeString safely asserts value to string.
func SafeString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// SafeStringDefault asserts value to string with a fallback.
func SafeStringDefault(value any, defaultVal string) string {
	if s, ok := SafeString(value); ok {
		return s
	}
	return defaultVal
}
