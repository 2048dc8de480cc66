package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogPretty bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// If true, REELIST_TOKEN_HMAC_KEY must be set (>= 32 bytes) and
	// refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool

	// TokenSweepInterval is how often expired refresh-token rows are purged.
	// Expiry is enforced at query time regardless; the sweep only reclaims
	// storage. Zero disables the sweeper.
	TokenSweepInterval time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// Dev-mode seeding for the in-memory store (no DatabaseURL). Both must
	// be set for a principal to be created.
	DevAdminEmail    string
	DevAdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("REELIST_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("REELIST_LOG_LEVEL", "info"),
		LogPretty: EnvBool("REELIST_LOG_PRETTY", false),

		ReadHeaderTimeout: EnvDuration("REELIST_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("REELIST_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("REELIST_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("REELIST_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("REELIST_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("REELIST_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("REELIST_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("REELIST_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("REELIST_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("REELIST_REQUIRE_TOKEN_HMAC", false),

		TokenSweepInterval: EnvDuration("REELIST_TOKEN_SWEEP_INTERVAL", time.Hour),

		CORSAllowedOrigins:   EnvStrings("REELIST_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("REELIST_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("REELIST_CORS_MAX_AGE_SECONDS", 600),

		DevAdminEmail:    EnvString("REELIST_DEV_ADMIN_EMAIL", ""),
		DevAdminPassword: EnvString("REELIST_DEV_ADMIN_PASSWORD", ""),
	}
}
