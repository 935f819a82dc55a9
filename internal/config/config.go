package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	CatalogSourceRest     = "rest"
	CatalogSourcePostgres = "postgres"
)

var ErrMissingSupabaseCredentials = errors.New("supabase url and anon key must be set (SUPABASE_URL, SUPABASE_ANON_KEY)")

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// session persistence: memory | redis
	SessionStore string `toml:"session_store"`
	// exercise catalog reads: rest | postgres
	CatalogSource string `toml:"catalog_source"`
	// front end / offline
	FrontendURL     string   `toml:"frontend_url"`
	AuthRedirectURL string   `toml:"auth_redirect_url"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	PrecacheURLs    []string `toml:"precache_urls"`
	CacheSizeMB     int      `toml:"cache_size_mb"`
	// rate limiting of sign in / sign up
	AuthRateLimitAllowedPerMin int `toml:"auth_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML config file and returns the section for the given env,
// with defaults applied to unset fields.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] missing", env)
	}

	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.SessionStore == "" {
		c.SessionStore = SessionStoreMemory
	}
	if c.CatalogSource == "" {
		c.CatalogSource = CatalogSourceRest
	}
	if c.CacheSizeMB <= 0 {
		c.CacheSizeMB = 32
	}
	if c.AuthRateLimitAllowedPerMin <= 0 {
		c.AuthRateLimitAllowedPerMin = 15
	}
	if len(c.PrecacheURLs) == 0 {
		c.PrecacheURLs = []string{"/", "/offline"}
	}
}

func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown session store: %s", c.SessionStore)
	}
	switch c.CatalogSource {
	case CatalogSourceRest, CatalogSourcePostgres:
	default:
		return fmt.Errorf("unknown catalog source: %s", c.CatalogSource)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Secrets are never kept in the config file.
type Secrets struct {
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	DatabaseURL       string
	RedisPassword     string
	SentryDSN         string
}

// LoadDotEnv loads a .env file into the process env when one exists.
// Variables already set take precedence.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warnf("load env file %s: %s", p, err)
			continue
		}
		log.Debugf("env file loaded: %s", p)
		return
	}
}

// LoadSecrets reads secrets from the environment. Supabase URL and anon key are
// required, everything else is optional.
func LoadSecrets() (*Secrets, error) {
	s := &Secrets{
		SupabaseURL:       firstEnv("SUPABASE_URL", "PUBLIC_SUPABASE_URL"),
		SupabaseAnonKey:   firstEnv("SUPABASE_ANON_KEY", "PUBLIC_SUPABASE_ANON_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisPassword:     os.Getenv("TRAINOR_REDIS_PASS"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
	}
	if s.SupabaseURL == "" || s.SupabaseAnonKey == "" {
		return nil, ErrMissingSupabaseCredentials
	}
	return s, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
