package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior.
type Config struct {
	// MaxBodyBytes caps request body size for all auth endpoints.
	MaxBodyBytes int64
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes: envInt64("REELIST_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
