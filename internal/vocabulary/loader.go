package vocabulary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/policy-intake/internal/cache"
)

// Source fetches the master-data document from the backend.
type Source interface {
	FetchMasterData(ctx context.Context) (MasterData, error)
}

var cacheKey = cache.Key("vocabulary", "master")

// Loader memoizes the vocabulary and coalesces concurrent loads into a single fetch.
type Loader struct {
	source   Source
	defaults Defaults
	cache    cache.Client
	cacheTTL time.Duration
	logger   *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded *Vocabulary
}

type LoaderOption func(*Loader)

// WithCache shares fetched master data through c for ttl.
func WithCache(c cache.Client, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = c
		l.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(source Source, defaults Defaults, opts ...LoaderOption) *Loader {
	l := &Loader{source: source, defaults: defaults, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the memoized vocabulary, fetching it once. A caller whose ctx ends stops
// waiting; the shared fetch keeps running for the other waiters.
func (l *Loader) Load(ctx context.Context) (*Vocabulary, error) {
	if v := l.cached(); v != nil {
		return v, nil
	}

	ch := l.group.DoChan(cacheKey, func() (any, error) {
		if v := l.cached(); v != nil {
			return v, nil
		}
		v, err := l.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded = v
		l.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Vocabulary), nil
	}
}

// Invalidate drops the memoized vocabulary and the shared cache entry.
func (l *Loader) Invalidate(ctx context.Context) error {
	l.mu.Lock()
	l.loaded = nil
	l.mu.Unlock()
	if l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, cacheKey)
}

func (l *Loader) cached() *Vocabulary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (l *Loader) fetch(ctx context.Context) (*Vocabulary, error) {
	start := time.Now()
	if l.cache != nil {
		b, err := l.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var data MasterData
			if err := json.Unmarshal(b, &data); err == nil {
				l.logger.Info("vocabulary.load.cache_hit", "elapsed_ms", time.Since(start).Milliseconds())
				return New(data, l.defaults), nil
			}
			l.logger.Warn("vocabulary.load.cache_corrupt", "error", err)
		case !errors.Is(err, cache.ErrCacheMiss):
			l.logger.Warn("vocabulary.load.cache_error", "error", err)
		}
	}

	data, err := l.source.FetchMasterData(ctx)
	if err != nil {
		l.logger.Error("vocabulary.load.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("fetch master data: %w", err)
	}

	if l.cache != nil {
		if b, err := json.Marshal(data); err == nil {
			if err := l.cache.Set(ctx, cacheKey, b, l.cacheTTL); err != nil {
				l.logger.Warn("vocabulary.cache.set_failed", "error", err)
			}
		}
	}
	l.logger.Info("vocabulary.load.ok",
		"fuel", len(data.Combustibles),
		"categories", len(data.Categorias),
		"currencies", len(data.Monedas),
		"elapsed_ms", time.Since(start).Milliseconds())
	return New(data, l.defaults), nil
}

// FileSource reads master data from a YAML or JSON file. It backs offline runs of the CLI.
type FileSource struct {
	Path string
}

func (f FileSource) FetchMasterData(_ context.Context) (MasterData, error) {
	return LoadFile(f.Path)
}

// LoadFile decodes a master-data document. YAML is a superset of JSON so both are accepted.
func LoadFile(path string) (MasterData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return MasterData{}, fmt.Errorf("read master data %s: %w", path, err)
	}
	var data MasterData
	if err := yaml.Unmarshal(b, &data); err != nil {
		return MasterData{}, fmt.Errorf("decode master data %s: %w", path, err)
	}
	return data, nil
}
