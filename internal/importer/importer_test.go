package importer

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/config"
	"github.com/pable/go-hud-stats/internal/events"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/storage"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "parser", "testdata", name))
	require.NoError(t, err)
	return raw
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func (r *recorder) Close() error { return nil }

type env struct {
	db  *storage.DB
	agg *cache.Aggregator
	pub *recorder
	imp *Importer
}

func newEnv(t *testing.T, cfg config.ImportConfig, opts ...Option) *env {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if cfg.SessionGap == 0 {
		cfg.SessionGap = 30 * time.Minute
	}
	e := &env{db: db, agg: cache.NewAggregator(db), pub: &recorder{}}
	opts = append([]Option{WithPublisher(e.pub)}, opts...)
	e.imp = New(db, e.agg, parser.NewRegistry(), cfg, opts...)
	return e
}

func (e *env) buckets(t *testing.T) []cache.Bucket {
	t.Helper()
	b, err := e.db.Buckets(context.Background(), cache.Filter{})
	require.NoError(t, err)
	return b
}

// ---- Batch import ----

func TestRunImportsPlainAndCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt")),
		writeFile(t, dir, "tourney.txt.gz", gzipped(t, fixture(t, "winamax_tourney.txt"))),
	}
	e := newEnv(t, config.ImportConfig{Workers: 2})
	ctx := context.Background()

	b, err := e.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Stored)
	assert.Zero(t, b.Duplicates)
	assert.Zero(t, b.Errors)
	assert.Zero(t, b.FileErrors)
	assert.Len(t, e.pub.got, 4, "one event per stored hand")
	assert.NotEmpty(t, e.buckets(t))

	carol, err := e.db.PlayerID(ctx, "Carol", "winamax")
	require.NoError(t, err)
	sessions, err := e.db.Sessions(ctx, carol)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Hands)

	imports, err := e.db.ListImports(ctx)
	require.NoError(t, err)
	assert.Len(t, imports, 2)

	// Same content again is skipped by hash.
	b, err = e.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Skipped)
	assert.Zero(t, b.Stored)
}

func TestForcedReimportCountsDuplicates(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "cash.txt.zst", zstded(t, fixture(t, "winamax_cash.txt")))}
	e := newEnv(t, config.ImportConfig{Workers: 1}, WithForce(true))
	ctx := context.Background()

	_, err := e.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)
	before := e.buckets(t)

	b, err := e.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Duplicates)
	assert.Zero(t, b.Stored)
	assert.Equal(t, before, e.buckets(t), "duplicates leave the cache untouched")
}

// ---- Per-hand error policy ----

func TestBadHandsAreCountedNotFatal(t *testing.T) {
	cash := string(fixture(t, "winamax_cash.txt"))
	chunks := parser.SplitOnBlankLines(cash)
	require.Len(t, chunks, 3)

	// Hand three with an unseated actor: inconsistent, stored excluded.
	broken := strings.Replace(chunks[2], "1285031600", "1285099999", 1)
	broken = strings.Replace(broken, "Alice folds\n", "Alice folds\nZed folds\n", 1)
	garbage := "PokerStars Hand #1: Hold'em No Limit ($0.01/$0.02)\nnothing else here"
	text := chunks[0] + "\n\n\n" + garbage + "\n\n\n" + broken + "\n"

	dir := t.TempDir()
	files := []string{writeFile(t, dir, "mixed.txt", []byte(text))}
	e := newEnv(t, config.ImportConfig{Workers: 1})

	b, err := e.imp.Run(context.Background(), "winamax", files)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Stored)
	assert.Equal(t, 1, b.Partial)
	assert.Equal(t, 1, b.Errors)

	kinds := map[string]int{}
	for _, he := range b.HandErrors() {
		kinds[he.Kind]++
	}
	assert.Equal(t, map[string]int{"unrecognized": 1, "inconsistent": 1}, kinds)

	o, err := e.db.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, o.Hands)
	assert.Equal(t, 1, o.Excluded)
}

func TestFailFastStopsBatch(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "a_bad.txt", []byte("not a hand history at all"))
	good := writeFile(t, dir, "b_good.txt", fixture(t, "winamax_cash.txt"))
	e := newEnv(t, config.ImportConfig{Workers: 1, FailFast: true})

	b, err := e.imp.Run(context.Background(), "winamax", []string{bad, good})
	require.ErrorIs(t, err, ErrFailFast)
	assert.GreaterOrEqual(t, b.Errors+b.FileErrors, 1)
	assert.Zero(t, b.Stored)
}

func TestCancelledContextStartsNothing(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt"))}
	e := newEnv(t, config.ImportConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := e.imp.Run(ctx, "winamax", files)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.Files)
}

// ---- Cache maintenance ----

func TestFastStoreMatchesIncremental(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt")),
		writeFile(t, dir, "tourney.txt", fixture(t, "winamax_tourney.txt")),
	}
	ctx := context.Background()

	inc := newEnv(t, config.ImportConfig{Workers: 2})
	_, err := inc.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)

	fast := newEnv(t, config.ImportConfig{Workers: 2, FastStoreHudCache: true})
	_, err = fast.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)

	assert.Equal(t, inc.buckets(t), fast.buckets(t))
}

func TestRederiveKeepsCache(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt"))}
	e := newEnv(t, config.ImportConfig{Workers: 1})
	ctx := context.Background()

	_, err := e.imp.Run(ctx, "winamax", files)
	require.NoError(t, err)
	before := e.buckets(t)

	res, err := Rederive(ctx, e.db, parser.NewRegistry(), e.agg)
	require.NoError(t, err)
	assert.Equal(t, RederiveResult{Hands: 3, Updated: 3}, res)
	assert.Equal(t, before, e.buckets(t))
}

// ---- Files ----

func TestCollectWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.Mkdir(sub, 0o755))
	a := writeFile(t, dir, "a.txt", []byte("x"))
	b := writeFile(t, sub, "b.txt.bz2", []byte("x"))
	writeFile(t, dir, "notes.md", []byte("x"))

	got, err := Collect([]string{dir, a})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, got)

	_, err = Collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestNewIDIsOrdered(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

// ---- Directory watch ----

func TestWatcherPollPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt"))
	e := newEnv(t, config.ImportConfig{Workers: 1})
	w := NewWatcher(e.imp, "winamax", []string{dir}, time.Minute)
	ctx := context.Background()

	b, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Stored)
	require.Len(t, e.pub.got, 4)
	assert.Equal(t, events.TypeImportDone, e.pub.got[3].Type)

	// Nothing new: no batch event.
	b, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Skipped)
	assert.Len(t, e.pub.got, 4)

	writeFile(t, dir, "tourney.txt", fixture(t, "winamax_tourney.txt"))
	b, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Stored)
	assert.Equal(t, 1, b.Skipped)
}

func TestWatchStopsOnCancel(t *testing.T) {
	e := newEnv(t, config.ImportConfig{Workers: 1})
	w := NewWatcher(e.imp, "winamax", []string{t.TempDir()}, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// ---- Write conflicts ----

// conflictingStore fails the first hand inserts with a retryable conflict.
type conflictingStore struct {
	*storage.DB
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (s *conflictingStore) StoreHand(ctx context.Context, rec storage.HandRecord) (*storage.StoredHand, error) {
	s.mu.Lock()
	s.calls++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return nil, fmt.Errorf("deadlock detected: %w", cache.ErrConflict)
	}
	s.mu.Unlock()
	return s.DB.StoreHand(ctx, rec)
}

func newConflictEnv(t *testing.T, conflicts int, retries uint64) (*conflictingStore, *Importer) {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := &conflictingStore{DB: db, conflicts: conflicts}
	agg := cache.NewAggregator(db, cache.WithRetry(retries, time.Millisecond))
	cfg := config.ImportConfig{Workers: 1, SessionGap: 30 * time.Minute}
	return store, New(store, agg, parser.NewRegistry(), cfg)
}

func TestStoreConflictsAreRetried(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt"))}
	store, imp := newConflictEnv(t, 2, 5)

	b, err := imp.Run(context.Background(), "winamax", files)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Stored)
	assert.Zero(t, b.Errors)
	assert.Equal(t, 5, store.calls)
}

func TestStoreConflictBudgetExhausted(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "cash.txt", fixture(t, "winamax_cash.txt"))}
	_, imp := newConflictEnv(t, 100, 1)

	b, err := imp.Run(context.Background(), "winamax", files)
	require.NoError(t, err)
	assert.Zero(t, b.Stored)
	assert.Equal(t, 3, b.Errors)
	for _, he := range b.HandErrors() {
		assert.Equal(t, "store", he.Kind)
		assert.ErrorIs(t, he.Err, cache.ErrConflict)
	}
}
