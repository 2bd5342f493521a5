package config

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"broker"`
	Password string `env:"PASSWORD"                envDefault:"broker"`
	Name     string `env:"NAME"                    envDefault:"broker"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the job output buffer.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// OutputConfig bounds the per-job output buffer.
type OutputConfig struct {
	// MaxChunks caps the number of buffered output chunks per job.
	// When the cap is reached the oldest chunks are dropped.
	MaxChunks int `env:"OUTPUT_MAX_CHUNKS" envDefault:"1000"`
}

// Sanitize applies guardrails to output buffer configuration values.
func (c *OutputConfig) Sanitize() {
	if c.MaxChunks <= 0 {
		c.MaxChunks = 1000
	}
}
