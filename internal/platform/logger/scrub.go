package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

var secretKeyParts = []string{"token", "authorization", "password", "secret", "api_key", "apikey", "service_key"}

// scrubber rewrites sensitive values by key. The zero value is disabled.
type scrubber struct {
	enabled bool
	salt    string
}

// scrubberFromEnv reads LOG_REDACTION_ENABLED (default on) and LOG_HASH_SALT.
func scrubberFromEnv() scrubber {
	s := scrubber{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		s.enabled = false
	}
	return s
}

func (s scrubber) kvs(kv []interface{}) []interface{} {
	if !s.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = s.value(stringify(out[i]), out[i+1])
	}
	return out
}

func (s scrubber) value(key string, val interface{}) interface{} {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return val
	}
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return redacted
		}
	}
	// user ids stay correlatable across lines without being readable.
	if key == "user_id" || strings.HasSuffix(key, "_user_id") {
		return s.digest(val)
	}
	if str, ok := val.(string); ok && isBearerLike(str) {
		return redacted
	}
	return val
}

func (s scrubber) digest(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

// isBearerLike matches three dot-separated segments shaped like a JWT.
func isBearerLike(v string) bool {
	parts := strings.Split(v, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
