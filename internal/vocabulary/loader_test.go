package vocabulary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/internal/cache"
)

type blockingSource struct {
	data    MasterData
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSource(data MasterData) *blockingSource {
	return &blockingSource{data: data, started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSource) FetchMasterData(ctx context.Context) (MasterData, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.data, nil
	case <-ctx.Done():
		return MasterData{}, ctx.Err()
	}
}

type failingSource struct{ calls atomic.Int32 }

func (s *failingSource) FetchMasterData(context.Context) (MasterData, error) {
	s.calls.Add(1)
	return MasterData{}, errors.New("backend down")
}

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	src := newBlockingSource(loadFixture(t))
	l := NewLoader(src, testDefaults)

	const callers = 8
	results := make([]*Vocabulary, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Load(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-src.started
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}

	v, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], v)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestLoaderCallerCanAbandonWait(t *testing.T) {
	src := newBlockingSource(loadFixture(t))
	l := NewLoader(src, testDefaults)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx)
		done <- err
	}()

	<-src.started
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return after cancellation")
	}

	close(src.release)
	v, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, v.Table("fuel").Len())
}

func TestLoaderErrorIsNotMemoized(t *testing.T) {
	src := &failingSource{}
	l := NewLoader(src, testDefaults)

	_, err := l.Load(context.Background())
	require.Error(t, err)
	_, err = l.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestLoaderUsesSharedCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient()

	first := newBlockingSource(loadFixture(t))
	close(first.release)
	_, err := NewLoader(first, testDefaults, WithCache(mem, time.Hour)).Load(ctx)
	require.NoError(t, err)
	cached, err := mem.Get(ctx, "vocabulary:master")
	require.NoError(t, err)
	assert.NotEmpty(t, cached)

	second := &failingSource{}
	v, err := NewLoader(second, testDefaults, WithCache(mem, time.Hour)).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(0), second.calls.Load())
	assert.Equal(t, "DIS", NewResolver(v, nil).Resolve("fuel", "diesel"))

	l := NewLoader(second, testDefaults, WithCache(mem, time.Hour))
	require.NoError(t, l.Invalidate(ctx))
	_, err = l.Load(ctx)
	assert.Error(t, err)
}
