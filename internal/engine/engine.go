// Package engine owns one loaded payroll dataset and its embedding index and
// answers semantic searches, structured filters and statistics over it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"payrollrag/internal/cache"
	"payrollrag/internal/chunker"
	"payrollrag/internal/dataset"
	"payrollrag/internal/domain"
	"payrollrag/internal/embedding"
	"payrollrag/internal/index"
	"payrollrag/internal/logger"
	"payrollrag/internal/query"
)

// Options configures an Engine.
type Options struct {
	DatasetPath string
	Embedder    embedding.Embedder
	// Store defaults to cache.NopStore.
	Store cache.Store
	// TopK is used when Search is called with topK <= 0.
	TopK int
	// Employees adds query spellings per canonical employee name.
	Employees map[string][]string
	// WatchDebounce delays a reload after the last file event.
	WatchDebounce time.Duration
}

// Info describes the loaded snapshot.
type Info struct {
	Path     string    `json:"path"`
	Hash     string    `json:"hash"`
	CacheKey string    `json:"cache_key"`
	Records  int       `json:"records"`
	CacheHit bool      `json:"cache_hit"`
	Embedder string    `json:"embedder"`
	LoadedAt time.Time `json:"loaded_at"`
}

type snapshot struct {
	ds       *dataset.Dataset
	index    *index.Index
	lexicon  *query.Lexicon
	key      string
	hit      bool
	loadedAt time.Time
}

// Engine is safe for concurrent use. Reload replaces the whole snapshot at
// once; readers see either the old or the new one.
type Engine struct {
	opts    Options
	builder *cache.Builder

	mu   sync.RWMutex
	snap *snapshot
}

// New loads the dataset, ensures its index and builds the employee lexicon.
// Any failure aborts construction.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Embedder == nil {
		return nil, errors.New("engine: embedder is required")
	}
	if opts.Store == nil {
		opts.Store = cache.NopStore{}
	}
	if opts.TopK <= 0 {
		opts.TopK = index.DefaultTopK
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = 500 * time.Millisecond
	}
	e := &Engine{opts: opts, builder: cache.NewBuilder(opts.Store)}
	snap, err := e.build(ctx)
	if err != nil {
		return nil, err
	}
	e.snap = snap
	logger.Info("engine ready with %d chunks", snap.index.Len())
	return e, nil
}

func (e *Engine) build(ctx context.Context) (*snapshot, error) {
	ds, err := dataset.Load(e.opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	res, err := e.builder.EnsureIndex(ctx, ds, e.opts.Embedder)
	if err != nil {
		return nil, err
	}
	idx, err := index.New(res.Chunks, res.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	return &snapshot{
		ds:       ds,
		index:    idx,
		lexicon:  query.NewLexicon(dataset.EmployeeNames(ds.Records), e.opts.Employees),
		key:      res.Key,
		hit:      res.Hit,
		loadedAt: time.Now(),
	}, nil
}

// Reload rebuilds the snapshot from the dataset path. On failure the
// previous snapshot stays in place.
//
// The write lock is held for the whole rebuild because a corpus-fitted
// embedder is refitted on the new chunks and must not serve queries against
// the old index meanwhile.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, err := e.build(ctx)
	if err != nil {
		if e.snap != nil {
			if perr := e.opts.Embedder.Prepare(chunker.Texts(e.snap.index.Chunks())); perr != nil {
				logger.Error("restoring embedder after failed reload: %v", perr)
			}
		}
		return err
	}
	e.snap = snap
	logger.Info("dataset reloaded: %d records (cache hit: %t)", snap.index.Len(), snap.hit)
	return nil
}

// Search ranks the chunks against q. The returned Status separates an empty
// or rejected query and a failing embedder from a plain lack of matches.
func (e *Engine) Search(ctx context.Context, q string, topK int) domain.SearchResponse {
	resp := domain.SearchResponse{Query: q, Results: []domain.SearchResult{}}
	if strings.TrimSpace(q) == "" {
		logger.Warn("empty query received")
		resp.Status = domain.StatusEmptyQuery
		return resp
	}
	clean, ok := query.Sanitize(q)
	if !ok {
		logger.Warn("potential attack detected in query: %q", q)
		resp.Status = domain.StatusRejected
		return resp
	}
	if topK <= 0 {
		topK = e.opts.TopK
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	boosts := index.Boosts{
		Month:    query.ExtractMonth(clean),
		Employee: e.snap.lexicon.ExtractEmployee(clean),
	}
	logger.Debug("query signals: %s %s", boosts.Month, boosts.Employee)

	vec, err := e.opts.Embedder.Embed(ctx, clean)
	if err != nil {
		return degraded(resp, fmt.Errorf("%w: %v", domain.ErrEmbeddingModel, err))
	}
	results, err := e.snap.index.Search(vec, topK, boosts)
	if err != nil {
		return degraded(resp, err)
	}
	resp.Results = results
	logger.Info("query %q -> %d results (scores: %v)", clean, len(results), scores(results))
	return resp
}

func degraded(resp domain.SearchResponse, err error) domain.SearchResponse {
	logger.Error("search failed: %v", err)
	resp.Status = domain.StatusDegraded
	resp.Err = err
	return resp
}

func scores(rs []domain.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = fmt.Sprintf("%.3f", r.Score)
	}
	return out
}

// Filter returns the records matching c in dataset order.
func (e *Engine) Filter(c domain.Criteria) []domain.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return dataset.Filter(e.snap.ds.Records, c)
}

// Statistics summarises the loaded dataset.
func (e *Engine) Statistics() domain.Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return dataset.Stats(e.snap.ds.Records)
}

// Records returns a copy of the loaded records.
func (e *Engine) Records() []domain.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.Record(nil), e.snap.ds.Records...)
}

// Lexicon returns the employee lexicon of the current snapshot.
func (e *Engine) Lexicon() *query.Lexicon {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.lexicon
}

// Info describes the current snapshot.
func (e *Engine) Info() Info {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Info{
		Path:     e.snap.ds.Path,
		Hash:     e.snap.ds.Hash,
		CacheKey: e.snap.key,
		Records:  len(e.snap.ds.Records),
		CacheHit: e.snap.hit,
		Embedder: e.opts.Embedder.Name(),
		LoadedAt: e.snap.loadedAt,
	}
}

// TopK returns the default result count.
func (e *Engine) TopK() int { return e.opts.TopK }
