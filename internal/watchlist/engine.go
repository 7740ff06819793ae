package watchlist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// ErrRefreshInProgress is returned when a refresh is requested while
// another one is still running.
var ErrRefreshInProgress = eris.New("REFRESH_IN_PROGRESS")

// Engine drives a full list refresh: every source is fetched and extracted
// concurrently under a bounded pool and a per-source deadline, the
// survivors are normalised, and the index is rebuilt once from the combined
// records. Source failures are isolated; only all sources failing aborts
// the refresh. At most one refresh runs at a time.
type Engine struct {
	registry    *Registry
	fetcher     *FeedFetcher
	store       *index.Store
	parallelism int
	perSource   time.Duration

	refreshing atomic.Bool
}

// NewEngine creates a refresh engine. parallelism bounds the concurrent
// fetches; perSource is the fetch+extract deadline for one source.
func NewEngine(registry *Registry, fetcher *FeedFetcher, store *index.Store, parallelism int, perSource time.Duration) *Engine {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Engine{
		registry:    registry,
		fetcher:     fetcher,
		store:       store,
		parallelism: parallelism,
		perSource:   perSource,
	}
}

// Refreshing reports whether a refresh is currently running.
func (e *Engine) Refreshing() bool { return e.refreshing.Load() }

// RefreshSummary reports the outcome of one refresh.
type RefreshSummary struct {
	Rows      int             `json:"rows"`
	Sources   []ExtractResult `json:"sources"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// Failed returns the names of the sources that contributed nothing.
func (s *RefreshSummary) Failed() []string {
	var out []string
	for _, r := range s.Sources {
		if r.Err != "" {
			out = append(out, r.Source)
		}
	}
	return out
}

type sourceOutcome struct {
	result   ExtractResult
	entities []model.Entity
}

// Refresh fetches every source and rebuilds the index wholesale. A second
// concurrent call fails immediately with ErrRefreshInProgress. A failed or
// cancelled refresh leaves the previous index generation untouched.
func (e *Engine) Refresh(ctx context.Context) (*RefreshSummary, error) {
	if !e.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer e.refreshing.Store(false)

	start := time.Now()
	sources := e.registry.All()
	outcomes := e.collect(ctx, sources)

	var entities []model.Entity
	results := make([]ExtractResult, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		results[i] = o.result
		if o.result.Err != "" {
			failed++
			continue
		}
		entities = append(entities, o.entities...)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "watchlist: refresh cancelled")
	}
	if failed == len(sources) {
		return nil, eris.New("watchlist: every source failed, keeping previous index")
	}

	rows, err := e.store.Rebuild(ctx, entities)
	if err != nil {
		return nil, err
	}

	summary := &RefreshSummary{
		Rows:      rows,
		Sources:   results,
		StartedAt: start.UTC(),
		Duration:  time.Since(start),
	}
	zap.L().Info("refresh complete",
		zap.Int("rows", rows),
		zap.Int("sources", len(sources)),
		zap.Strings("failed", summary.Failed()),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, nil
}

// Check runs fetch+extract+normalise for the named sources (all when empty)
// without touching the index. It exists for operators validating feeds or
// mirror overrides before trusting them with a rebuild.
func (e *Engine) Check(ctx context.Context, names []string) ([]ExtractResult, error) {
	sources, err := e.registry.Select(names)
	if err != nil {
		return nil, err
	}
	outcomes := e.collect(ctx, sources)
	results := make([]ExtractResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
	}
	return results, eris.Wrap(ctx.Err(), "watchlist: check cancelled")
}

// collect runs the per-source pipeline under the bounded pool. Errors stay
// inside each outcome so one broken feed never cancels its siblings.
func (e *Engine) collect(ctx context.Context, sources []Source) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)
	for i, src := range sources {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, e.perSource)
			defer cancel()
			outcomes[i] = e.processSource(sctx, src)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	return outcomes
}

func (e *Engine) processSource(ctx context.Context, src Source) sourceOutcome {
	log := zap.L().With(zap.String("source", src.Name()))
	result := ExtractResult{
		Source:   src.Name(),
		ListName: src.ListName(),
	}

	payload, err := e.fetcher.Fetch(ctx, src)
	if err != nil {
		log.Error("source failed", zap.Error(err))
		result.Err = err.Error()
		return sourceOutcome{result: result}
	}
	result.FromSnapshot = payload.FromSnapshot

	raws, err := src.Extract(payload.Data)
	if err != nil {
		log.Error("extract failed", zap.Error(err))
		result.Err = err.Error()
		return sourceOutcome{result: result}
	}

	entities, dropped := Normalize(src.ListName(), raws, payload.Provenance)
	result.Records = len(entities)
	result.Dropped = dropped

	log.Info("source extracted",
		zap.Int("records", len(entities)),
		zap.Int("dropped", dropped),
		zap.Bool("from_snapshot", payload.FromSnapshot),
	)
	return sourceOutcome{result: result, entities: entities}
}
