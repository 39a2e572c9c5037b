package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// ErrConflict marks a bucket write that lost a race with another writer.
// Stores wrap their backend's busy or serialization errors in it.
var ErrConflict = errors.New("cache bucket conflict")

// Store persists buckets. IncrementBuckets must add to existing rows
// atomically; RebuildBuckets replaces every bucket from the stored rows.
type Store interface {
	IncrementBuckets(ctx context.Context, buckets []Bucket) error
	RebuildBuckets(ctx context.Context) error
}

// Aggregator serialises cache writes: increments share the lock and may
// run together, a rebuild holds it alone.
type Aggregator struct {
	mu         sync.RWMutex
	store      Store
	maxRetries uint64
	interval   time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRetry sets how often a conflicting write is retried and the first
// backoff interval.
func WithRetry(max uint64, initial time.Duration) Option {
	return func(a *Aggregator) {
		a.maxRetries = max
		a.interval = initial
	}
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, maxRetries: 8, interval: 5 * time.Millisecond}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Update adds rows to their buckets. The caller guarantees each
// (hand, player) row is passed once.
func (a *Aggregator) Update(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	buckets := Build(rows)
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retry(ctx, "hudcache increment", func() error {
		return a.store.IncrementBuckets(ctx, buckets)
	})
}

// Rebuild recomputes every bucket with exclusive access to the cache.
func (a *Aggregator) Rebuild(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := time.Now()
	if err := a.retry(ctx, "hudcache rebuild", func() error {
		return a.store.RebuildBuckets(ctx)
	}); err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(start)).Msg("hudcache_rebuilt")
	return nil
}

// Retry runs fn under the same conflict backoff as cache writes, without
// taking the cache lock. Hand inserts use it so that two workers racing on
// a new player row retry instead of failing the hand.
func (a *Aggregator) Retry(ctx context.Context, op string, fn func() error) error {
	return a.retry(ctx, op, fn)
}

func (a *Aggregator) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, a.maxRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return backoff.Permanent(err)
		}
		log.Debug().Str("op", op).Int("attempt", attempt).Err(err).Msg("conflict_retry")
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
