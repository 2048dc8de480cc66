package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecretKey = "0123456789abcdef0123456789abcdef" // 32 bytes

func TestLoadConfigFromEnv_MissingSecretKey(t *testing.T) {
	t.Setenv(EnvSecretKey, "")
	_, err := LoadConfigFromEnv()
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig on missing secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortSecretKey(t *testing.T) {
	t.Setenv(EnvSecretKey, "too-short")
	_, err := LoadConfigFromEnv()
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig on short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	t.Setenv(EnvSecretKey, testSecretKey)
	t.Setenv(EnvAccessTokenTTL, "-5m")
	_, err := LoadConfigFromEnv()
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidRefreshTokenBytes(t *testing.T) {
	t.Setenv(EnvSecretKey, testSecretKey)
	t.Setenv(EnvRefreshTokenBytes, "16")
	_, err := LoadConfigFromEnv()
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for small refresh bytes, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv(EnvSecretKey, testSecretKey)
	t.Setenv(EnvIssuer, "reelist-test")
	t.Setenv(EnvAccessTokenTTL, "10m")
	t.Setenv(EnvRefreshTokenTTL, "168h")
	t.Setenv(EnvClockSkew, "20s")
	t.Setenv(EnvRefreshTokenBytes, "48")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Issuer != "reelist-test" {
		t.Fatalf("issuer = %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("access ttl = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Fatalf("refresh ttl = %v", cfg.RefreshTokenTTL)
	}
	if cfg.ClockSkew != 20*time.Second {
		t.Fatalf("clock skew = %v", cfg.ClockSkew)
	}
	if cfg.RefreshTokenBytes != 48 {
		t.Fatalf("refresh bytes = %d", cfg.RefreshTokenBytes)
	}
}

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected defaults without a secret key to fail validation")
	}

	cfg.SecretKey = testSecretKey
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("default access ttl = %v", cfg.AccessTokenTTL)
	}
	if !strings.HasPrefix(cfg.Issuer, "reelist") {
		t.Fatalf("default issuer = %q", cfg.Issuer)
	}
}
