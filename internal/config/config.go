package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir        string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey       string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer           string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience         string        `mapstructure:"AUTH_AUDIENCE"`
	LocalStateBackend    string        `mapstructure:"LOCAL_STATE_BACKEND"`
	LocalStateDir        string        `mapstructure:"LOCAL_STATE_DIR"`
	ArchiveDir           string        `mapstructure:"ARCHIVE_DIR"`
	StaffSigners         int           `mapstructure:"STAFF_SIGNERS"`
	InstitutionName      string        `mapstructure:"INSTITUTION_NAME"`
	InstitutionShort     string        `mapstructure:"INSTITUTION_SHORT"`
	LogoURL              string        `mapstructure:"LOGO_URL"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic           string        `mapstructure:"KAFKA_TOPIC"`
	NotificationCapacity int           `mapstructure:"NOTIFICATION_CAPACITY"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	UploadBodyLimit      string        `mapstructure:"UPLOAD_BODY_LIMIT"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"CORS_ORIGINS", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"LOCAL_STATE_BACKEND", "LOCAL_STATE_DIR", "ARCHIVE_DIR", "STAFF_SIGNERS",
	"INSTITUTION_NAME", "INSTITUTION_SHORT", "LOGO_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"NOTIFICATION_CAPACITY", "BODY_LIMIT", "UPLOAD_BODY_LIMIT", "REQUEST_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("AUTH_ISSUER", "alimentacion-solicitudes")
	v.SetDefault("LOCAL_STATE_BACKEND", "file")
	v.SetDefault("LOCAL_STATE_DIR", "data/local-state")
	v.SetDefault("STAFF_SIGNERS", 1)
	v.SetDefault("KAFKA_TOPIC", "alimentacion.orders")
	v.SetDefault("NOTIFICATION_CAPACITY", 100)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_BODY_LIMIT", "10M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
		log.Println("WARNING: Set ENV=production and AUTH_SIGNING_KEY before deploying.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key of at least 32 bytes is required so bearer tokens are
// enforced.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q; refusing to start without authentication", c.Env)
		}
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
		}
	}

	switch c.LocalStateBackend {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("LOCAL_STATE_BACKEND must be \"file\", \"postgres\" or \"memory\", got %q", c.LocalStateBackend)
	}
	if c.LocalStateBackend == "memory" && c.IsProduction() {
		return fmt.Errorf("LOCAL_STATE_BACKEND=memory loses drafts on restart and is not allowed in production")
	}

	if c.StaffSigners < 1 || c.StaffSigners > 3 {
		return fmt.Errorf("STAFF_SIGNERS must be between 1 and 3, got %d", c.StaffSigners)
	}
	if c.NotificationCapacity <= 0 {
		return fmt.Errorf("NOTIFICATION_CAPACITY must be positive, got %d", c.NotificationCapacity)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
