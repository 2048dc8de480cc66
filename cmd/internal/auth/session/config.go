package session

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names read by LoadConfigFromEnv.
const (
	EnvSecretKey         = "REELIST_AUTH_SECRET_KEY"
	EnvIssuer            = "REELIST_AUTH_ISSUER"
	EnvAccessTokenTTL    = "REELIST_AUTH_ACCESS_TTL"
	EnvRefreshTokenTTL   = "REELIST_AUTH_REFRESH_TTL"
	EnvClockSkew         = "REELIST_AUTH_CLOCK_SKEW"
	EnvRefreshTokenBytes = "REELIST_AUTH_REFRESH_TOKEN_BYTES"
)

const minSecretKeyBytes = 32

// Config holds session issuance parameters.
type Config struct {
	// SecretKey signs and verifies access tokens. Required, at least 32 bytes.
	SecretKey string

	// Issuer is stamped into the iss claim and enforced on verification.
	Issuer string

	// AccessTokenTTL bounds how long an access token is accepted.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL bounds how long a refresh chain can stay idle
	// before its latest value expires.
	RefreshTokenTTL time.Duration

	// ClockSkew is the leeway granted when checking time claims.
	ClockSkew time.Duration

	// RefreshTokenBytes is the entropy of each opaque refresh value.
	RefreshTokenBytes int
}

// DefaultConfig returns production defaults. SecretKey is intentionally
// empty; Validate rejects the zero value until one is supplied.
func DefaultConfig() Config {
	return Config{
		Issuer:            "reelist",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   30 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: 32,
	}
}

// LoadConfigFromEnv builds a Config from defaults overridden by environment
// variables. REELIST_AUTH_SECRET_KEY has no default and must be set.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.SecretKey = os.Getenv(EnvSecretKey)

	if v := os.Getenv(EnvIssuer); v != "" {
		cfg.Issuer = v
	}
	var err error
	if cfg.AccessTokenTTL, err = envDuration(EnvAccessTokenTTL, cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = envDuration(EnvRefreshTokenTTL, cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ClockSkew, err = envDuration(EnvClockSkew, cfg.ClockSkew); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(EnvRefreshTokenBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, EnvRefreshTokenBytes, err)
		}
		cfg.RefreshTokenBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if len(c.SecretKey) < minSecretKeyBytes {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, EnvSecretKey, minSecretKeyBytes)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer must not be empty", ErrConfig)
	}
	if c.AccessTokenTTL <= 0 || c.AccessTokenTTL > 24*time.Hour {
		return fmt.Errorf("%w: access token TTL must be in (0, 24h]", ErrConfig)
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: refresh token TTL must be positive", ErrConfig)
	}
	if c.ClockSkew < 0 || c.ClockSkew > 5*time.Minute {
		return fmt.Errorf("%w: clock skew must be in [0, 5m]", ErrConfig)
	}
	if c.RefreshTokenBytes < 32 || c.RefreshTokenBytes > 64 {
		return fmt.Errorf("%w: refresh token bytes must be in [32, 64]", ErrConfig)
	}
	return nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConfig, key, err)
	}
	return d, nil
}
