package resolver

import "strings"

// Payload is the loosely-typed webhook body. Provider payload shapes evolve,
// so traversal goes through safe helpers instead of a fixed schema.
type Payload map[string]any

// Sub returns a nested object, or nil if the key is absent or not an object.
func (p Payload) Sub(key string) Payload {
	if p == nil {
		return nil
	}
	if m, ok := p[key].(map[string]any); ok {
		return Payload(m)
	}
	return nil
}

// Str returns the first non-blank string value among the given keys.
func (p Payload) Str(keys ...string) string {
	if p == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := p[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// List returns a nested array, or nil.
func (p Payload) List(key string) []any {
	if p == nil {
		return nil
	}
	if l, ok := p[key].([]any); ok {
		return l
	}
	return nil
}

// phoneField unwraps a phone-shaped value under key: either a plain string
// or an object carrying number/phoneNumber/id. The second return reports
// whether the value was an id needing external resolution.
func (p Payload) phoneField(key string) (value string, isID bool) {
	if p == nil {
		return "", false
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v), false
	case map[string]any:
		obj := Payload(v)
		if num := obj.Str("number", "phoneNumber"); num != "" {
			return num, false
		}
		if id := obj.Str("id"); id != "" {
			return id, true
		}
	}
	return "", false
}
