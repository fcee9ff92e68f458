package podds

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]*Posterior
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]*Posterior)}
}

func (m *memoryStore) LoadPosterior(key string) (*Posterior, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SavePosterior(key string, p *Posterior) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = p
	return nil
}

func (m *memoryStore) DeletePosterior(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) ClearPosteriors() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*Posterior)
	return nil
}

func testKey(avg float64) CacheKey {
	h := e2eHome()
	h.AvgGoalsFor = avg
	return NewCacheKey(h, e2eAway(), h.RecentGoalsFor, e2eAway().RecentGoalsFor, QuickFidelity, 42)
}

func TestCacheKeyRoundsToThreeDecimals(t *testing.T) {
	assert.Equal(t, testKey(2.0), testKey(2.0004))
	assert.NotEqual(t, testKey(2.0), testKey(2.0006))

	k := testKey(2.0)
	assert.Equal(t, "h=2000/600/1300/700;a=1300/1000/1000/900;oh=3,1,2,3,1,2,1;oa=1,2,0,1,0,2,1;f=quick:500/500/2;s=42;c=0/0/0/0", k.String())

	full := NewCacheKey(e2eHome(), e2eAway(), nil, nil, FullFidelity, 42)
	quick := NewCacheKey(e2eHome(), e2eAway(), nil, nil, QuickFidelity, 42)
	assert.NotEqual(t, full, quick)

	other := NewCacheKey(e2eHome(), e2eAway(), nil, nil, QuickFidelity, 7)
	assert.NotEqual(t, quick, other)

	// observed sequences are part of the key
	withObs := NewCacheKey(e2eHome(), e2eAway(), []int{1}, nil, QuickFidelity, 42)
	assert.NotEqual(t, quick, withObs)
}

func TestCacheKeyCoversFitSettings(t *testing.T) {
	cfg := DefaultPoddsConfig()
	k := testKey(2.0).WithSettings(cfg)
	assert.Equal(t, k, testKey(2.0).WithSettings(DefaultPoddsConfig()))
	assert.Contains(t, k.String(), ";c=50/6000/300/1100")

	wider := DefaultPoddsConfig()
	wider.RateUpperBound = 8
	assert.NotEqual(t, k, testKey(2.0).WithSettings(wider))
	assert.NotEqual(t, k.String(), testKey(2.0).WithSettings(wider).String())

	looser := DefaultPoddsConfig()
	looser.MaxRHat = 1.2
	assert.NotEqual(t, k, testKey(2.0).WithSettings(looser))

	floor := DefaultPoddsConfig()
	floor.MinStd = 0.4
	assert.NotEqual(t, k, testKey(2.0).WithSettings(floor))
}

func TestEstimatorDoesNotReuseFitsAcrossSettings(t *testing.T) {
	store := newMemoryStore()
	cfg := DefaultPoddsConfig()
	first := NewRateEstimator(cfg, NewPosteriorCache(4, 0, store))
	_, err := first.EstimateRates(context.Background(), e2eHome(), e2eAway(), nil, nil, QuickFidelity)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.FitCount())

	// a restart with other prior bounds must not pick the old fit out of the store
	changed := DefaultPoddsConfig()
	changed.RateUpperBound = 8
	second := NewRateEstimator(changed, NewPosteriorCache(4, 0, store))
	_, err = second.EstimateRates(context.Background(), e2eHome(), e2eAway(), nil, nil, QuickFidelity)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.FitCount())
	assert.Len(t, store.data, 2)
}

func TestCachePutGetClear(t *testing.T) {
	c := NewPosteriorCache(2, 0, nil)
	defer c.Close()

	_, ok := c.Get(testKey(1))
	assert.False(t, ok)

	p := spreadPosterior()
	c.Put(testKey(1), p)
	got, ok := c.Get(testKey(1))
	require.True(t, ok)
	assert.Same(t, p, got)

	// bounded: the least recently used entry goes
	c.Put(testKey(2), p)
	c.Put(testKey(3), p)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(testKey(1))
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, 2, st.Capacity)

	c.Remove(testKey(2))
	assert.Equal(t, 1, c.Len())
	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().Hits)
}

func TestCacheExpires(t *testing.T) {
	c := NewPosteriorCache(4, 20*time.Millisecond, nil)
	c.Put(testKey(1), spreadPosterior())
	assert.Eventually(t, func() bool {
		_, ok := c.lru.Peek(testKey(1))
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestGetOrFitSharesConcurrentMisses(t *testing.T) {
	c := NewPosteriorCache(4, 0, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	fit := func() (*Posterior, error) {
		calls.Add(1)
		<-release
		return spreadPosterior(), nil
	}

	var wg sync.WaitGroup
	results := make([]*Posterior, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.GetOrFit(context.Background(), testKey(1), fit)
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Equal(t, int64(1), c.Stats().Fits)
}

func TestGetOrFitDoesNotCacheErrors(t *testing.T) {
	c := NewPosteriorCache(4, 0, nil)
	boom := errors.New("boom")
	_, err := c.GetOrFit(context.Background(), testKey(1), func() (*Posterior, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	p, err := c.GetOrFit(context.Background(), testKey(1), func() (*Posterior, error) { return spreadPosterior(), nil })
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())
}

func TestGetOrFitHonoursContext(t *testing.T) {
	c := NewPosteriorCache(4, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)
	_, err := c.GetOrFit(ctx, testKey(9), func() (*Posterior, error) {
		<-block
		return spreadPosterior(), nil
	})
	var fe *FittingFailedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageCancelled, fe.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetOrFitRefitsWhenStarterCancels(t *testing.T) {
	c := NewPosteriorCache(4, 0, nil)
	ctxA, cancelA := context.WithCancel(context.Background())
	started := make(chan struct{})
	fitA := func() (*Posterior, error) {
		close(started)
		<-ctxA.Done()
		return nil, fitError(StageCancelled, ctxA.Err())
	}
	var callsB atomic.Int32
	fitB := func() (*Posterior, error) {
		callsB.Add(1)
		return spreadPosterior(), nil
	}

	errA := make(chan error, 1)
	go func() {
		_, err := c.GetOrFit(ctxA, testKey(3), fitA)
		errA <- err
	}()
	<-started

	type outcome struct {
		p   *Posterior
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		p, err := c.GetOrFit(context.Background(), testKey(3), fitB)
		doneB <- outcome{p, err}
	}()
	// let the second caller join the running fit
	time.Sleep(50 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	b := <-doneB
	require.NoError(t, b.err)
	assert.Equal(t, 4, b.p.Len())
	assert.Equal(t, int32(1), callsB.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCacheStoreTier(t *testing.T) {
	store := newMemoryStore()
	first := NewPosteriorCache(4, 0, store)
	first.Put(testKey(1), spreadPosterior())
	assert.Len(t, store.data, 1)

	// a fresh process with an empty memory tier reads through to the store
	second := NewPosteriorCache(4, 0, store)
	p, ok := second.Get(testKey(1))
	require.True(t, ok)
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, int64(1), second.Stats().StoreHits)
	assert.Equal(t, 1, second.Len())

	second.Remove(testKey(1))
	assert.Empty(t, store.data)

	second.Put(testKey(2), spreadPosterior())
	require.NoError(t, second.Clear())
	assert.Empty(t, store.data)
}
