package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Velneo     VelneoConfig     `mapstructure:"velneo"`
	DocAI      DocAIConfig      `mapstructure:"docai"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Validation ValidationConfig `mapstructure:"validation"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
	Upload     UploadConfig     `mapstructure:"upload"`
}

// DatabaseConfig holds database-related configuration. SQLitePath is used when DSN is empty.
type DatabaseConfig struct {
	DSN              string        `mapstructure:"dsn"`
	SQLitePath       string        `mapstructure:"sqlite_path"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr   string        `mapstructure:"grpc_addr"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// VelneoConfig holds the backend API settings.
type VelneoConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DocAIConfig holds the document-AI service settings.
type DocAIConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Attempts          uint          `mapstructure:"attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	DefaultConfidence float64       `mapstructure:"default_confidence"`
}

// RedisConfig enables the shared master-data cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	Prefix   string `mapstructure:"prefix"`
}

// ValidationConfig holds the thresholds of the validation engine.
type ValidationConfig struct {
	MaxSpanYears         int     `mapstructure:"max_span_years"`
	PremiumCeilingRatio  float64 `mapstructure:"premium_ceiling_ratio"`
	PremiumCeiling       float64 `mapstructure:"premium_ceiling"`
	InstallmentTolerance float64 `mapstructure:"installment_tolerance"`
}

// VocabularyConfig selects the master-data source and the fallback IDs per category.
type VocabularyConfig struct {
	File     string            `mapstructure:"file"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
	Defaults map[string]string `mapstructure:"defaults"`
}

// UploadConfig bounds accepted policy files.
type UploadConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
	MaxPages int    `mapstructure:"max_pages"`
}

var envBindings = map[string]string{
	"database.dsn":                "DB_URL",
	"database.sqlite_path":        "DB_SQLITE_PATH",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"server.grpc_addr":            "GRPC_ADDR",
	"server.session_ttl":          "SESSION_TTL",
	"velneo.base_url":             "VELNEO_BASE_URL",
	"velneo.api_key":              "VELNEO_API_KEY",
	"velneo.timeout":              "VELNEO_TIMEOUT",
	"docai.endpoint":              "DOCAI_ENDPOINT",
	"docai.api_key":               "DOCAI_API_KEY",
	"docai.timeout":               "DOCAI_TIMEOUT",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"vocabulary.file":             "MASTER_DATA_FILE",
	"upload.dir":                  "UPLOAD_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))
	v.SetDefault("database.sqlite_path", "./policy-intake.db")

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.session_ttl", 12*time.Hour)

	v.SetDefault("velneo.timeout", 20*time.Second)
	v.SetDefault("velneo.attempts", 3)
	v.SetDefault("velneo.retry_delay", 500*time.Millisecond)

	v.SetDefault("docai.timeout", 90*time.Second)
	v.SetDefault("docai.attempts", 2)
	v.SetDefault("docai.retry_delay", time.Second)
	v.SetDefault("docai.default_confidence", 0.75)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.prefix", "policy-intake:")

	v.SetDefault("validation.max_span_years", 2)
	v.SetDefault("validation.premium_ceiling_ratio", 3.0)
	v.SetDefault("validation.premium_ceiling", 1000000.0)
	v.SetDefault("validation.installment_tolerance", 1.0)

	v.SetDefault("vocabulary.cache_ttl", time.Hour)
	v.SetDefault("vocabulary.defaults", map[string]string{
		"fuel":        "NAF",
		"category":    "1",
		"destination": "1",
		"quality":     "1",
		"department":  "1",
		"currency":    "1",
		"payment":     "CONTADO",
	})

	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_bytes", 20<<20)
	v.SetDefault("upload.max_pages", 50)
}

// LoadConfig reads defaults, an optional YAML file at path, and environment variables, in
// increasing precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("POLICY")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("server.grpc_addr", c.Server.GRPCAddr, Required)
	v.Field("velneo.base_url", c.Velneo.BaseURL, Required, URL)
	v.Field("docai.endpoint", c.DocAI.Endpoint, Required, URL)
	v.Field("docai.default_confidence", c.DocAI.DefaultConfidence, Between(0, 1))
	v.Field("validation.max_span_years", float64(c.Validation.MaxSpanYears), Between(1, 10))
	categories := constants.AsStringSlice()
	keys := make([]string, 0, len(c.Vocabulary.Defaults))
	for k := range c.Vocabulary.Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Field("vocabulary.defaults", k, OneOf(categories...))
	}
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL or database.sqlite_path is required", ErrInvalidInput)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
