// Package importer runs batch imports: it reads hand-history files on a
// bounded worker pool, parses and derives every hand, stores it and keeps
// the HUD and session caches current.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/config"
	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/events"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/storage"
)

// ErrFailFast is returned by Run when fail-fast mode stopped the batch.
var ErrFailFast = errors.New("import stopped on first error")

// Store is the persistence the importer writes to. *storage.DB
// implements it.
type Store interface {
	BeginImport(ctx context.Context, id, fileName, fileHash, site string, started time.Time) error
	FinishImport(ctx context.Context, imp storage.Import) error
	FileImported(ctx context.Context, fileHash string) (bool, error)
	StoreHand(ctx context.Context, rec storage.HandRecord) (*storage.StoredHand, error)
	RecomputeSessions(ctx context.Context, playerIDs []int64, gap time.Duration) error
}

// HandError describes one hand that could not be imported cleanly.
type HandError struct {
	File   string
	Index  int
	HandNo int64
	Kind   string
	Err    error
}

// FileResult reports one file.
type FileResult struct {
	Path       string
	ImportID   string
	Skipped    bool // already imported
	Stored     int
	Duplicates int
	Partial    int // stored, kept out of the HUD cache
	Errors     int
	HandErrors []HandError
	Err        error // the file could not be read or decoded
	Duration   time.Duration

	players map[int64]bool
}

// Batch reports a whole import run.
type Batch struct {
	Files      []FileResult
	Stored     int
	Duplicates int
	Partial    int
	Errors     int
	FileErrors int
	Skipped    int
	Duration   time.Duration
}

func (b *Batch) add(f FileResult) {
	b.Files = append(b.Files, f)
	b.Stored += f.Stored
	b.Duplicates += f.Duplicates
	b.Partial += f.Partial
	b.Errors += f.Errors
	if f.Err != nil {
		b.FileErrors++
	}
	if f.Skipped {
		b.Skipped++
	}
}

// HandErrors returns every hand error of the batch in file order.
func (b *Batch) HandErrors() []HandError {
	var out []HandError
	for _, f := range b.Files {
		out = append(out, f.HandErrors...)
	}
	return out
}

// Importer imports hand-history files.
type Importer struct {
	store   Store
	agg     *cache.Aggregator
	parsers *parser.Registry
	pub     events.Publisher
	cfg     config.ImportConfig
	force   bool
	now     func() time.Time
}

type Option func(*Importer)

// WithPublisher sends hand and batch events to p.
func WithPublisher(p events.Publisher) Option {
	return func(i *Importer) { i.pub = p }
}

// WithForce re-reads files whose content was imported before.
func WithForce(force bool) Option {
	return func(i *Importer) { i.force = force }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

func New(store Store, agg *cache.Aggregator, parsers *parser.Registry, cfg config.ImportConfig, opts ...Option) *Importer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	i := &Importer{store: store, agg: agg, parsers: parsers, pub: events.Nop{}, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Run imports files written for site. Files run in parallel up to the
// configured worker count. Cancelling ctx, or a failure in fail-fast mode,
// stops new files from starting; files already running finish the hand in
// progress and stop.
func (i *Importer) Run(ctx context.Context, site string, files []string) (*Batch, error) {
	start := i.now()
	results := make([]FileResult, len(files))
	started := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for n, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			started[n] = true
			began := i.now()
			fr := i.importFile(gctx, site, path)
			fr.Duration = i.now().Sub(began)
			results[n] = fr
			if i.cfg.FailFast && (fr.Err != nil || fr.Errors > 0) {
				return fmt.Errorf("%s: %w", path, ErrFailFast)
			}
			return nil
		})
	}
	runErr := g.Wait()

	batch := &Batch{}
	touched := map[int64]bool{}
	for n, fr := range results {
		if !started[n] {
			continue
		}
		batch.add(fr)
		for id := range fr.players {
			touched[id] = true
		}
	}

	// Cache maintenance must run even if the batch was cancelled, so the
	// hands already stored are reflected.
	bg := context.WithoutCancel(ctx)
	if i.cfg.FastStoreHudCache && batch.Stored > 0 {
		if err := i.agg.Rebuild(bg); err != nil {
			return batch, fmt.Errorf("rebuild hudcache: %w", err)
		}
	}
	if len(touched) > 0 {
		ids := make([]int64, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		if err := i.store.RecomputeSessions(bg, ids, i.cfg.SessionGap); err != nil {
			return batch, fmt.Errorf("recompute sessions: %w", err)
		}
	}
	batch.Duration = i.now().Sub(start)

	log.Info().
		Int("files", len(batch.Files)).
		Int("stored", batch.Stored).
		Int("duplicates", batch.Duplicates).
		Int("partial", batch.Partial).
		Int("errors", batch.Errors).
		Int("file_errors", batch.FileErrors).
		Dur("took", batch.Duration).
		Msg("import_batch_done")

	if runErr != nil {
		return batch, runErr
	}
	return batch, ctx.Err()
}

func (i *Importer) importFile(ctx context.Context, site, path string) FileResult {
	fr := FileResult{Path: path, players: map[int64]bool{}}

	fail := func(err error) FileResult {
		fr.Err = err
		log.Error().Err(err).Str("file", path).Msg("import_file_failed")
		return fr
	}

	raw, err := readHistory(path)
	if err != nil {
		return fail(err)
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	if !i.force {
		done, err := i.store.FileImported(ctx, hash)
		if err != nil {
			return fail(fmt.Errorf("check import: %w", err))
		}
		if done {
			fr.Skipped = true
			log.Info().Str("file", path).Msg("import_file_skipped")
			return fr
		}
	}

	p, err := i.parsers.Lookup(site)
	if err != nil {
		return fail(err)
	}
	results, err := parser.ParseFile(p, raw)
	if err != nil {
		return fail(fmt.Errorf("decode %s: %w", filepath.Base(path), err))
	}

	fr.ImportID = NewID()
	if err := i.store.BeginImport(ctx, fr.ImportID, filepath.Base(path), hash, p.Site().String(), i.now()); err != nil {
		return fail(err)
	}

	// A started hand is stored even if ctx is cancelled meanwhile.
	handCtx := context.WithoutCancel(ctx)
	complete := true
	for _, r := range results {
		if ctx.Err() != nil {
			complete = false
			break
		}
		i.importHand(handCtx, &fr, r)
	}

	// An interrupted file keeps a zero finish time so a later run reads it
	// again; its stored hands then count as duplicates.
	var finished time.Time
	if complete {
		finished = i.now()
	}
	err = i.store.FinishImport(handCtx, storage.Import{
		ID:         fr.ImportID,
		FinishedAt: finished,
		Stored:     fr.Stored,
		Duplicates: fr.Duplicates,
		Partial:    fr.Partial,
		Errors:     fr.Errors,
	})
	if err != nil {
		return fail(err)
	}
	log.Info().
		Str("file", path).
		Str("import_id", fr.ImportID).
		Int("stored", fr.Stored).
		Int("duplicates", fr.Duplicates).
		Int("partial", fr.Partial).
		Int("errors", fr.Errors).
		Msg("import_file_done")
	return fr
}

func (i *Importer) importHand(ctx context.Context, fr *FileResult, r parser.Result) {
	handErr := func(kind string, handNo int64, err error) {
		fr.Errors++
		fr.HandErrors = append(fr.HandErrors, HandError{File: fr.Path, Index: r.Index, HandNo: handNo, Kind: kind, Err: err})
	}

	rec := storage.HandRecord{ImportID: fr.ImportID, Hand: r.Hand}
	var partialErr error
	switch {
	case r.Err == nil:
		d, err := derived.Derive(r.Hand)
		if err != nil {
			log.Warn().Err(err).Str("file", fr.Path).Int64("hand_no", r.Hand.HandNo).Msg("hand_derive_failed")
			rec.Excluded, partialErr = true, err
		} else {
			rec.Derived = d
		}
	case errors.Is(r.Err, parser.ErrInconsistentData) && r.Hand != nil:
		log.Warn().Err(r.Err).Str("file", fr.Path).Int64("hand_no", r.Hand.HandNo).Msg("hand_inconsistent")
		rec.Excluded, partialErr = true, r.Err
		if d, err := derived.Derive(r.Hand); err == nil {
			rec.Derived = d
		}
	default:
		log.Warn().Err(r.Err).Str("file", fr.Path).Int("index", r.Index).Msg("hand_parse_failed")
		handErr("unrecognized", 0, r.Err)
		return
	}

	var stored *storage.StoredHand
	err := i.agg.Retry(ctx, "store hand", func() error {
		var err error
		stored, err = i.store.StoreHand(ctx, rec)
		return err
	})
	if errors.Is(err, storage.ErrDuplicateHand) {
		fr.Duplicates++
		return
	}
	if err != nil {
		log.Error().Err(err).Str("file", fr.Path).Int64("hand_no", r.Hand.HandNo).Msg("hand_store_failed")
		handErr("store", r.Hand.HandNo, err)
		return
	}
	if rec.Excluded {
		fr.Partial++
		fr.HandErrors = append(fr.HandErrors, HandError{File: fr.Path, Index: r.Index, HandNo: r.Hand.HandNo, Kind: "inconsistent", Err: partialErr})
	} else {
		fr.Stored++
	}

	names := make([]string, 0, len(stored.PlayerIDs))
	for name, id := range stored.PlayerIDs {
		fr.players[id] = true
		names = append(names, name)
	}
	sort.Strings(names)

	if !i.cfg.FastStoreHudCache && len(stored.Rows) > 0 {
		if err := i.agg.Update(ctx, stored.Rows); err != nil {
			log.Error().Err(err).Int64("hand_no", r.Hand.HandNo).Msg("hudcache_update_failed")
			handErr("cache", r.Hand.HandNo, err)
		}
	}

	e := events.Event{
		Type:      events.TypeHandImported,
		ImportID:  fr.ImportID,
		Site:      r.Hand.Site.String(),
		HandNo:    r.Hand.HandNo,
		Players:   names,
		Timestamp: i.now().UTC(),
	}
	if err := i.pub.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Int64("hand_no", r.Hand.HandNo).Msg("event_publish_failed")
	}
}

// PublishBatch sends the batch summary event.
func (i *Importer) PublishBatch(ctx context.Context, b *Batch) error {
	return i.pub.Publish(ctx, events.Event{
		Type:       events.TypeImportDone,
		Stored:     b.Stored,
		Duplicates: b.Duplicates,
		Partial:    b.Partial,
		Errors:     b.Errors,
		Timestamp:  i.now().UTC(),
	})
}

// Watcher re-runs an import over a set of paths on an interval. Files seen
// before are skipped by content hash.
type Watcher struct {
	imp   *Importer
	site  string
	paths []string
	every time.Duration
	mu    sync.Mutex
}

func NewWatcher(imp *Importer, site string, paths []string, every time.Duration) *Watcher {
	return &Watcher{imp: imp, site: site, paths: paths, every: every}
}

// Poll runs one import pass.
func (w *Watcher) Poll(ctx context.Context) (*Batch, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	files, err := Collect(w.paths)
	if err != nil {
		return nil, err
	}
	b, err := w.imp.Run(ctx, w.site, files)
	if err != nil {
		return b, err
	}
	if b.Stored+b.Partial > 0 {
		if err := w.imp.PublishBatch(ctx, b); err != nil {
			log.Warn().Err(err).Msg("event_publish_failed")
		}
	}
	return b, nil
}

// Watch polls until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()
	for {
		if _, err := w.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("watch_poll_failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
