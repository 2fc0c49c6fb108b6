// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Public base URL of the provisioning service, used to build the
	// Shopify OAuth redirect_uri.
	AuthURL string

	// Directory holding the per-tenant infrastructure definition the
	// terraform runner applies.
	TerraformDir string

	// Path to the stack profile file (shared backend + project settings).
	StackProfilePath string

	// Timeout for the post-provision warmup call against the tenant's
	// admin API (embedding generation can take minutes).
	WarmupTimeout time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:              env("PROVISOR_ENV", "dev"),
		HTTPAddr:         env("PROVISOR_HTTP_ADDR", ":8080"),
		AuthURL:          env("AUTH_URL", "http://localhost:8080"),
		TerraformDir:     env("TERRAFORM_DIR", "./terraform"),
		StackProfilePath: env("STACK_PROFILE", ""),
		WarmupTimeout:    envDur("WARMUP_TIMEOUT_SEC", 300) * time.Second,
		RedisURL:         env("REDIS_URL", ""),
		DatabaseURL:      env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory installation registry for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
