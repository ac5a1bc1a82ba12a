package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.GraphMaxDepth != 10 {
		t.Errorf("expected default graph depth 10, got %d", cfg.GraphMaxDepth)
	}
	if cfg.PickCacheSize != 256 {
		t.Errorf("expected default pick cache 256, got %d", cfg.PickCacheSize)
	}
	if cfg.BodyLimit != "2M" {
		t.Errorf("expected default body limit 2M, got %s", cfg.BodyLimit)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("expected default max conns 10, got %d", cfg.DBMaxConns)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected default request timeout 30s, got %s", cfg.RequestTimeout)
	}
	if cfg.RateLimitRPS != 100 || cfg.RateLimitBurst != 200 {
		t.Errorf("unexpected rate limit defaults: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEMA_DIR", "/etc/hacs/schemas")
	t.Setenv("GRAPH_MAX_DEPTH", "3")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SchemaDir != "/etc/hacs/schemas" {
		t.Errorf("expected schema dir, got %s", cfg.SchemaDir)
	}
	if cfg.GraphMaxDepth != 3 {
		t.Errorf("expected depth 3, got %d", cfg.GraphMaxDepth)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.RequestTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func validConfig() *Config {
	return &Config{Env: "development", PickCacheSize: 256, GraphMaxDepth: 10, DBMaxConns: 10, DBMinConns: 1}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"dev defaults", func(*Config) {}, ""},
		{"production without key", func(c *Config) { c.Env = "production" }, "AUTH_SIGNING_KEY"},
		{"production with key", func(c *Config) { c.Env = "production"; c.AuthSigningKey = "k" }, ""},
		{"partial s3", func(c *Config) { c.S3Endpoint = "minio:9000"; c.S3Bucket = "schemas" }, "SCHEMA_S3_ACCESS_KEY"},
		{"complete s3", func(c *Config) {
			c.S3Endpoint, c.S3Bucket, c.S3AccessKey, c.S3SecretKey = "minio:9000", "schemas", "a", "s"
		}, ""},
		{"negative depth", func(c *Config) { c.GraphMaxDepth = -1 }, "GRAPH_MAX_DEPTH"},
		{"zero cache", func(c *Config) { c.PickCacheSize = 0 }, "PICK_CACHE_SIZE"},
		{"min over max", func(c *Config) { c.DBMinConns = 20 }, "DB_MIN_CONNS"},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "REQUEST_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
