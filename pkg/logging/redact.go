package logging

import "strings"

// Redacted replaces sensitive values in log payloads.
const Redacted = "[REDACTED]"

// sensitiveKeys are map keys whose values are masked regardless of content.
// Keys are compared case-insensitively.
var sensitiveKeys = map[string]struct{}{
	"api_key":        {},
	"apikey":         {},
	"authorization":  {},
	"body":           {},
	"cookie":         {},
	"set-cookie":     {},
	"secret":         {},
	"password":       {},
	"response":       {},
	"token":          {},
	"zotero-api-key": {},
	"uploadkey":      {},
	"prefix":         {},
	"suffix":         {},
	"file_path":      {},
	"path":           {},

	// Raw upload payloads can be megabytes of base64.
	"file_bytes_base64": {},
}

// Redact returns a copy of value safe for logging. Values under sensitive
// keys and string values equal to any registered secret are replaced with
// the Redacted placeholder. Maps and slices are walked recursively; all
// other types pass through unchanged.
func Redact(value any, secrets ...string) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
				out[key] = Redacted
				continue
			}
			out[key] = Redact(inner, secrets...)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = Redact(inner, secrets...)
		}
		return out
	case string:
		for _, secret := range secrets {
			if secret != "" && v == secret {
				return Redacted
			}
		}
		return v
	default:
		return value
	}
}
