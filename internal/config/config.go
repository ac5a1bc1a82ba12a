package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	AuthSigningKey    string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer        string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience      string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	SchemaDir         string        `mapstructure:"SCHEMA_DIR"`
	SchemaDatabaseURL string        `mapstructure:"SCHEMA_DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	S3Endpoint        string        `mapstructure:"SCHEMA_S3_ENDPOINT"`
	S3Bucket          string        `mapstructure:"SCHEMA_S3_BUCKET"`
	S3Prefix          string        `mapstructure:"SCHEMA_S3_PREFIX"`
	S3AccessKey       string        `mapstructure:"SCHEMA_S3_ACCESS_KEY"`
	S3SecretKey       string        `mapstructure:"SCHEMA_S3_SECRET_KEY"`
	S3UseSSL          bool          `mapstructure:"SCHEMA_S3_USE_SSL"`
	PickCacheSize     int           `mapstructure:"PICK_CACHE_SIZE"`
	GraphMaxDepth     int           `mapstructure:"GRAPH_MAX_DEPTH"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS",
	"SCHEMA_DIR", "SCHEMA_DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SCHEMA_S3_ENDPOINT", "SCHEMA_S3_BUCKET", "SCHEMA_S3_PREFIX",
	"SCHEMA_S3_ACCESS_KEY", "SCHEMA_S3_SECRET_KEY", "SCHEMA_S3_USE_SSL",
	"PICK_CACHE_SIZE", "GRAPH_MAX_DEPTH", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PICK_CACHE_SIZE", 256)
	v.SetDefault("GRAPH_MAX_DEPTH", 10)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// S3Enabled reports whether an S3 schema source is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key is required so bearer auth is enforced on the API.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.S3Enabled() {
		var missing []string
		if c.S3Bucket == "" {
			missing = append(missing, "SCHEMA_S3_BUCKET")
		}
		if c.S3AccessKey == "" {
			missing = append(missing, "SCHEMA_S3_ACCESS_KEY")
		}
		if c.S3SecretKey == "" {
			missing = append(missing, "SCHEMA_S3_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("SCHEMA_S3_ENDPOINT is set but %s missing", strings.Join(missing, ", "))
		}
	}
	if c.GraphMaxDepth < 0 {
		return fmt.Errorf("GRAPH_MAX_DEPTH must be >= 0, got %d", c.GraphMaxDepth)
	}
	if c.PickCacheSize <= 0 {
		return fmt.Errorf("PICK_CACHE_SIZE must be > 0, got %d", c.PickCacheSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
