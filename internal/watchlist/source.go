// Package watchlist fetches the authority sanctions feeds, extracts their
// records and normalises them into canonical entities for the index.
package watchlist

import (
	"github.com/halcyonpay/amlscreen/internal/model"
)

// Source defines the interface each authority feed must implement.
type Source interface {
	// Name returns the unique source key (e.g. "ofac_sdn", "seco").
	Name() string

	// ListName returns the list label stamped on every record.
	ListName() model.Source

	// Publisher returns the issuing authority, used in the listsUsed block.
	Publisher() string

	// FeedURL returns the authoritative download URL.
	FeedURL() string

	// SnapshotFile returns the bundled fallback filename under the
	// snapshot directory.
	SnapshotFile() string

	// Extract parses one feed payload into raw records. A malformed
	// record is skipped, not fatal; a malformed document is an error.
	Extract(data []byte) ([]model.RawRecord, error)
}

// ExtractResult holds the outcome of one source's fetch+extract+normalise.
type ExtractResult struct {
	Source       string       `json:"source"`
	ListName     model.Source `json:"list_name"`
	Records      int          `json:"records"`
	Dropped      int          `json:"dropped"`
	FromSnapshot bool         `json:"from_snapshot"`
	Err          string       `json:"error,omitempty"`
}
