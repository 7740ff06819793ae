package watchlist

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// Payload is one downloaded (or snapshot-recovered) feed document.
type Payload struct {
	Data         []byte
	Provenance   model.Provenance
	FromSnapshot bool
}

// FeedFetcher downloads feed documents, falling back to the bundled
// snapshot when the authority is unreachable. Successful downloads are
// stamped into the refresh log; snapshot reads are not, so staleness
// monitoring keeps seeing the real last-download time.
type FeedFetcher struct {
	client      fetcher.Fetcher
	log         *RefreshLog
	snapshotDir string
}

// NewFeedFetcher creates a feed fetcher.
func NewFeedFetcher(client fetcher.Fetcher, log *RefreshLog, snapshotDir string) *FeedFetcher {
	return &FeedFetcher{
		client:      client,
		log:         log,
		snapshotDir: snapshotDir,
	}
}

// Fetch downloads one source's feed. On any download failure (network,
// HTTP status, empty body) it falls back to the bundled snapshot; both
// failing is fatal for this source only.
func (f *FeedFetcher) Fetch(ctx context.Context, src Source) (*Payload, error) {
	log := zap.L().With(zap.String("source", src.Name()))
	url := src.FeedURL()

	res, err := f.client.Fetch(ctx, url)
	if err == nil {
		if logErr := f.log.Append(src.Name(), res.RetrievedAt); logErr != nil {
			log.Warn("refresh log append failed", zap.Error(logErr))
		}
		return &Payload{
			Data: res.Body,
			Provenance: model.Provenance{
				SourceURL:  url,
				IngestedAt: res.RetrievedAt,
				ETag:       res.ETag,
			},
		}, nil
	}

	snapshot := filepath.Join(f.snapshotDir, src.SnapshotFile())
	log.Warn("download failed, trying snapshot",
		zap.String("url", url),
		zap.String("snapshot", snapshot),
		zap.Error(err))

	data, readErr := os.ReadFile(snapshot)
	if readErr != nil {
		return nil, eris.Wrapf(err, "watchlist: %s download failed and no snapshot at %s", src.Name(), snapshot)
	}
	if len(data) == 0 {
		return nil, eris.Errorf("watchlist: %s download failed and snapshot %s is empty", src.Name(), snapshot)
	}

	log.Info("using snapshot", zap.String("snapshot", snapshot), zap.Int("bytes", len(data)))
	return &Payload{
		Data:         data,
		FromSnapshot: true,
		Provenance: model.Provenance{
			SourceURL:  "file://" + snapshot,
			IngestedAt: time.Now().UTC(),
		},
	}, nil
}
