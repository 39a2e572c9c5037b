package cache

import (
	"context"
	"sync"

	"github.com/pable/go-hud-stats/internal/model"
)

// Memory is an in-process Store. It keeps the rows it was given so a
// rebuild can replay them.
type Memory struct {
	mu      sync.Mutex
	rows    []Row
	buckets map[Key]model.Counters
}

func NewMemory() *Memory {
	return &Memory{buckets: map[Key]model.Counters{}}
}

// Record stores source rows for later rebuilds. It does not touch buckets.
func (m *Memory) Record(rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

func (m *Memory) IncrementBuckets(ctx context.Context, buckets []Bucket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range buckets {
		c, ok := m.buckets[b.Key]
		if !ok {
			c = model.Counters{}
			m.buckets[b.Key] = c
		}
		c.Add(b.Counters)
	}
	return nil
}

func (m *Memory) RebuildBuckets(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fresh := map[Key]model.Counters{}
	for _, b := range Build(m.rows) {
		fresh[b.Key] = b.Counters
	}
	m.buckets = fresh
	return nil
}

// Buckets returns a sorted copy of every bucket.
func (m *Memory) Buckets() []Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Bucket, 0, len(m.buckets))
	for k, c := range m.buckets {
		out = append(out, Bucket{Key: k, Counters: c.Clone()})
	}
	SortBuckets(out)
	return out
}
