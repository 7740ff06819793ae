package watchlist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/model"
)

type fakeSource struct {
	name string
	list model.Source
	recs []model.RawRecord
	err  error
}

func (f *fakeSource) Name() string           { return f.name }
func (f *fakeSource) ListName() model.Source { return f.list }
func (f *fakeSource) Publisher() string      { return "Test Authority" }
func (f *fakeSource) FeedURL() string        { return "https://feeds.test/" + f.name + ".xml" }
func (f *fakeSource) SnapshotFile() string   { return f.name + ".xml" }

func (f *fakeSource) Extract(_ []byte) ([]model.RawRecord, error) {
	return f.recs, f.err
}

type fakeFetcher struct {
	fail  map[string]bool
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetcher.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[url] {
		return nil, errors.New("connection refused")
	}
	return &fetcher.Result{Body: []byte("<feed/>"), RetrievedAt: time.Now().UTC()}, nil
}

func rawPerson(list model.Source, id, name string) model.RawRecord {
	return model.RawRecord{Source: list, ListID: id, FullName: name}
}

type engineFixture struct {
	engine *Engine
	store  *index.Store
	log    *RefreshLog
}

func newEngineFixture(t *testing.T, client fetcher.Fetcher, sources ...Source) *engineFixture {
	t.Helper()
	dir := t.TempDir()

	store, err := index.Open(filepath.Join(dir, "sanctions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := NewRefreshLog(filepath.Join(dir, "logs"))
	feed := NewFeedFetcher(client, log, filepath.Join(dir, "snapshots"))

	registry := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		registry.Register(s)
	}

	return &engineFixture{
		engine: NewEngine(registry, feed, store, 4, 5*time.Second),
		store:  store,
		log:    log,
	}
}

func TestEngineRefresh_CombinesSources(t *testing.T) {
	fx := newEngineFixture(t, &fakeFetcher{},
		&fakeSource{name: "ofac_sdn", list: model.SourceOFACSDN, recs: []model.RawRecord{
			rawPerson(model.SourceOFACSDN, "100", "Ivan Petrov"),
			rawPerson(model.SourceOFACSDN, "101", "Acme Trading Ltd"),
		}},
		&fakeSource{name: "uk", list: model.SourceUK, recs: []model.RawRecord{
			rawPerson(model.SourceUK, "200", "Maria Lopez"),
		}},
	)

	summary, err := fx.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Empty(t, summary.Failed())
	require.Len(t, summary.Sources, 2)
	assert.Equal(t, 2, summary.Sources[0].Records)
	assert.Equal(t, 1, summary.Sources[1].Records)

	n, err := fx.store.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// successful downloads are stamped into the refresh log
	assert.NotEmpty(t, fx.log.Last("ofac_sdn"))
	assert.NotEmpty(t, fx.log.Last("uk"))
}

func TestEngineRefresh_IsolatesSourceFailure(t *testing.T) {
	bad := &fakeSource{name: "eu", list: model.SourceEU}
	fx := newEngineFixture(t,
		&fakeFetcher{fail: map[string]bool{bad.FeedURL(): true}},
		&fakeSource{name: "un", list: model.SourceUN, recs: []model.RawRecord{
			rawPerson(model.SourceUN, "300", "Chen Wei"),
		}},
		bad,
	)

	summary, err := fx.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rows)
	assert.Equal(t, []string{"eu"}, summary.Failed())

	n, err := fx.store.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngineRefresh_AllFailedKeepsPreviousIndex(t *testing.T) {
	bad := &fakeSource{name: "ca", list: model.SourceCA}
	fx := newEngineFixture(t,
		&fakeFetcher{fail: map[string]bool{bad.FeedURL(): true}},
		bad,
	)

	// seed a generation directly so there is something to protect
	_, err := fx.store.Rebuild(context.Background(), []model.Entity{{
		ListName: "CA", ListID: "1", PrimaryName: "Ivan Petrov",
	}})
	require.NoError(t, err)

	_, err = fx.engine.Refresh(context.Background())
	require.Error(t, err)

	n, err := fx.store.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gen, err := fx.store.Generation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestEngineRefresh_ConcurrentRefreshRejected(t *testing.T) {
	block := make(chan struct{})
	fx := newEngineFixture(t, &fakeFetcher{block: block},
		&fakeSource{name: "seco", list: model.SourceSECO, recs: []model.RawRecord{
			rawPerson(model.SourceSECO, "1", "Ivan Petrov"),
		}},
	)

	done := make(chan error, 1)
	go func() {
		_, err := fx.engine.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, fx.engine.Refreshing, time.Second, time.Millisecond)

	_, err := fx.engine.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, fx.engine.Refreshing())
}

func TestEngineCheck_LeavesIndexAlone(t *testing.T) {
	fx := newEngineFixture(t, &fakeFetcher{},
		&fakeSource{name: "au", list: model.SourceAU, recs: []model.RawRecord{
			rawPerson(model.SourceAU, "1", "Ivan Petrov"),
		}},
	)

	results, err := fx.engine.Check(context.Background(), []string{"au"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Records)
	assert.Empty(t, results[0].Err)

	assert.False(t, fx.store.Built(context.Background()))
}

func TestEngineCheck_UnknownSource(t *testing.T) {
	fx := newEngineFixture(t, &fakeFetcher{})

	_, err := fx.engine.Check(context.Background(), []string{"interpol"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}
