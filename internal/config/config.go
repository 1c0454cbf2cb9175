// Package config loads service configuration from defaults, an optional file and RECORDHUB_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RECORDHUB_DATABASE_DSN.
const EnvPrefix = "RECORDHUB"

// Search backends.
const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Config is the root configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Search   SearchConfig   `mapstructure:"search"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Gzip            bool          `mapstructure:"gzip"`
	// AuthRateLimit is requests per second per client IP on auth routes.
	AuthRateLimit float64 `mapstructure:"auth_rate_limit"`
	AuthRateBurst int     `mapstructure:"auth_rate_burst"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	RevokedRetention time.Duration `mapstructure:"revoked_retention"`
	CookieSecure     bool          `mapstructure:"cookie_secure"`
	CookieDomain     string        `mapstructure:"cookie_domain"`
}

type SearchConfig struct {
	Backend string `mapstructure:"backend"`
	// Fields narrows the allow-list. Empty means every student field.
	Fields        []string            `mapstructure:"fields"`
	ListFields    []string            `mapstructure:"list_fields"`
	NameFields    []string            `mapstructure:"name_fields"`
	SuggestFields []string            `mapstructure:"suggest_fields"`
	DefaultLimit  int                 `mapstructure:"default_limit"`
	MaxLimit      int                 `mapstructure:"max_limit"`
	OrderBy       string              `mapstructure:"order_by"`
	CaseSensitive bool                `mapstructure:"case_sensitive"`
	Elastic       ElasticsearchConfig `mapstructure:"elasticsearch"`
	// MemoryFile is a JSON array of records loaded by the memory backend.
	MemoryFile string `mapstructure:"memory_file"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Prefix          string        `mapstructure:"prefix"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`
	URLTTL          time.Duration `mapstructure:"url_ttl"`
}

type WorkerConfig struct {
	// TokenCleanupSchedule is a cron spec, e.g. "@every 1h".
	TokenCleanupSchedule string `mapstructure:"token_cleanup_schedule"`
	PoolStatsSchedule    string `mapstructure:"pool_stats_schedule"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recordhub")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.gzip", true)
	v.SetDefault("http.auth_rate_limit", 5.0)
	v.SetDefault("http.auth_rate_burst", 10)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.revoked_retention", 7*24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.cookie_domain", "")

	v.SetDefault("search.backend", BackendPostgres)
	v.SetDefault("search.fields", []string{})
	v.SetDefault("search.list_fields", []string{"first_name", "last_name", "email", "mobile"})
	v.SetDefault("search.name_fields", []string{"first_name"})
	v.SetDefault("search.suggest_fields", []string{"first_name"})
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.max_limit", 500)
	v.SetDefault("search.order_by", "roll_no")
	v.SetDefault("search.case_sensitive", false)
	v.SetDefault("search.elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("search.elasticsearch.username", "")
	v.SetDefault("search.elasticsearch.password", "")
	v.SetDefault("search.elasticsearch.index", "students")
	v.SetDefault("search.memory_file", "")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.bucket", "recordhub")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "uploads")
	v.SetDefault("storage.max_upload_size", int64(10<<20))
	v.SetDefault("storage.url_ttl", 15*time.Minute)

	v.SetDefault("worker.token_cleanup_schedule", "@every 1h")
	v.SetDefault("worker.pool_stats_schedule", "@every 5m")
}

// Load reads configuration. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings every binary needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" && c.Search.Backend != BackendMemory {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			errs = append(errs, errors.New("auth.jwt_secret is required outside development"))
		} else {
			c.Auth.JWTSecret = "development-secret-change-me"
		}
	}
	switch c.Search.Backend {
	case BackendPostgres, BackendMemory:
	case BackendElasticsearch:
		if len(c.Search.Elastic.Addresses) == 0 || c.Search.Elastic.Index == "" {
			errs = append(errs, errors.New("search.elasticsearch addresses and index are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search.backend %q", c.Search.Backend))
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search limits must satisfy 0 < default_limit <= max_limit"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http.port %d", c.HTTP.Port))
	}
	return errors.Join(errs...)
}
