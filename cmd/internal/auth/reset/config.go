package reset

import (
	"fmt"
	"os"
	"time"
)

// EnvCodeTTL overrides how long an issued code stays redeemable.
const EnvCodeTTL = "REELIST_RESET_CODE_TTL"

// Config holds reset-flow parameters.
type Config struct {
	// CodeTTL is the redemption window for an issued code.
	CodeTTL time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{CodeTTL: 15 * time.Minute}
}

// LoadConfigFromEnv builds a Config from defaults overridden by environment
// variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvCodeTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, EnvCodeTTL, err)
		}
		cfg.CodeTTL = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.CodeTTL <= 0 || c.CodeTTL > time.Hour {
		return fmt.Errorf("%w: code TTL must be in (0, 1h]", ErrConfig)
	}
	return nil
}
