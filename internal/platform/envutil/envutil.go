package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

func String(name, def string, log *logger.Logger) string {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		debug(log, name, "Environment variable not found, using default", "default", def)
		return def
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		debug(log, name, "Environment variable could not be parsed as int, using default", "provided", v, "default", def)
		return def
	}
	return i
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		debug(log, name, "Environment variable could not be parsed as bool, using default", "provided", v, "default", def)
		return def
	}
}

// Duration accepts Go duration syntax ("90s", "10m") or a bare number of seconds.
func Duration(name string, def time.Duration, log *logger.Logger) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	debug(log, name, "Environment variable could not be parsed as duration, using default", "provided", v, "default", def)
	return def
}

func debug(log *logger.Logger, name, msg string, kv ...interface{}) {
	if log == nil {
		return
	}
	log.With("env_var", name).Debug(msg, kv...)
}
