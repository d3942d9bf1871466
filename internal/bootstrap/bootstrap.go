// Package bootstrap turns a common.Config into the wired components shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/cache"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/mapping"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
	"github.com/joseph-ayodele/policy-intake/internal/validation"
	"github.com/joseph-ayodele/policy-intake/internal/velneo"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
	"github.com/joseph-ayodele/policy-intake/internal/wizard"
)

// Defaults converts the configured fallback IDs, keyed by category name.
func Defaults(cfg common.VocabularyConfig) (vocabulary.Defaults, error) {
	out := vocabulary.Defaults{}
	for _, cat := range constants.AllCategories() {
		out[cat] = cfg.Defaults[string(cat)]
	}
	if err := out.Validate(); err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "vocabulary defaults: "+err.Error(), common.ErrInvalidInput)
	}
	return out, nil
}

// ValidationConfig builds the engine thresholds, enabling membership checks for v.
func ValidationConfig(cfg common.ValidationConfig, v *vocabulary.Vocabulary) validation.Config {
	out := validation.DefaultConfig()
	if cfg.MaxSpanYears > 0 {
		out.MaxSpanYears = cfg.MaxSpanYears
	}
	if cfg.PremiumCeilingRatio > 0 {
		out.PremiumCeilingRatio = decimal.NewFromFloat(cfg.PremiumCeilingRatio)
	}
	if cfg.PremiumCeiling > 0 {
		out.PremiumCeiling = decimal.NewFromFloat(cfg.PremiumCeiling)
	}
	if cfg.InstallmentTolerance > 0 {
		out.InstallmentTolerance = decimal.NewFromFloat(cfg.InstallmentTolerance)
	}
	if v != nil {
		out = out.WithVocabulary(v)
	}
	return out
}

// Core is the pure part of the intake pipeline for one loaded vocabulary.
type Core struct {
	Vocabulary *vocabulary.Vocabulary
	Reconciler *reconcile.Reconciler
	Engine     *validation.Engine
	Machine    *wizard.Machine
}

func NewCore(v *vocabulary.Vocabulary, cfg common.ValidationConfig, logger *slog.Logger) *Core {
	rec := reconcile.New(mapping.Default(), vocabulary.NewResolver(v, logger), logger)
	engine := validation.NewEngine(ValidationConfig(cfg, v), logger)
	return &Core{
		Vocabulary: v,
		Reconciler: rec,
		Engine:     engine,
		Machine:    wizard.NewMachine(engine, rec, logger),
	}
}

// Store is an open, migrated database.
type Store struct {
	Driver *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenStore connects to Postgres when a DSN is configured and to SQLite otherwise, then applies
// the schema.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	st := &Store{logger: logger}
	if cfg.DSN != "" {
		drv, pool, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
			repository.Close(drv, pool, logger)
			return nil, err
		}
		st.Driver, st.pool = drv, pool
	} else {
		drv, err := repository.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		st.Driver = drv
	}
	if err := repository.Migrate(ctx, st.Driver, logger); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) Close() {
	repository.Close(s.Driver, s.pool, s.logger)
}

// MasterDataCache connects to Redis when configured. It returns nil without an address.
func MasterDataCache(ctx context.Context, cfg common.RedisConfig, logger *slog.Logger) cache.Client {
	if cfg.Addr == "" {
		return nil
	}
	c, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Prefix:   cfg.Prefix,
	})
	if err != nil {
		logger.Warn("cache.redis.unavailable", "addr", cfg.Addr, "error", err)
		return nil
	}
	return c
}

// Loader builds the master-data loader: a file source when one is configured, the Velneo API
// otherwise.
func Loader(cfg *common.Config, client *velneo.Client, c cache.Client, logger *slog.Logger) (*vocabulary.Loader, error) {
	defaults, err := Defaults(cfg.Vocabulary)
	if err != nil {
		return nil, err
	}
	var source vocabulary.Source
	switch {
	case cfg.Vocabulary.File != "":
		source = vocabulary.FileSource{Path: cfg.Vocabulary.File}
	case client != nil:
		source = client
	default:
		return nil, fmt.Errorf("%w: no master-data source configured", common.ErrInvalidInput)
	}
	opts := []vocabulary.LoaderOption{vocabulary.WithLogger(logger)}
	if c != nil {
		opts = append(opts, vocabulary.WithCache(c, cfg.Vocabulary.CacheTTL))
	}
	return vocabulary.NewLoader(source, defaults, opts...), nil
}

func VelneoClient(cfg common.VelneoConfig, logger *slog.Logger) *velneo.Client {
	return velneo.NewClient(velneo.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		Attempts:   cfg.Attempts,
		RetryDelay: cfg.RetryDelay,
	}, nil, logger)
}

func DocAIClient(cfg common.DocAIConfig, logger *slog.Logger) *docai.Client {
	return docai.NewClient(docai.Config{
		Endpoint:          cfg.Endpoint,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.Timeout,
		Attempts:          cfg.Attempts,
		RetryDelay:        cfg.RetryDelay,
		DefaultConfidence: cfg.DefaultConfidence,
	}, nil, logger)
}
