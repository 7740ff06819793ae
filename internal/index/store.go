// Package index persists the unified watchlist in SQLite and serves
// candidate retrieval for the screening engine. The store is generational:
// every refresh writes a complete new copy of the list next to the previous
// one and flips a counter, so readers never observe a half-built index.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/halcyonpay/amlscreen/internal/model"
)

// Store wraps the sanctions index database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the index database at path and configures WAL
// mode. The schema is created lazily by the first Rebuild so that readiness
// probes can distinguish "never built" from "empty".
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "index: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "index: exec %s", pragma)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

const migration = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	generation     INTEGER NOT NULL,
	list_name      TEXT NOT NULL,
	list_id        TEXT NOT NULL,
	global_id      TEXT NOT NULL,
	classification TEXT NOT NULL,
	name           TEXT NOT NULL,
	aliases        TEXT NOT NULL,
	country_iso    TEXT NOT NULL DEFAULT '',
	birth_year     INTEGER NOT NULL DEFAULT 0,
	record         TEXT NOT NULL,
	PRIMARY KEY (generation, list_name, list_id)
);

CREATE TABLE IF NOT EXISTS match_keys (
	generation    INTEGER NOT NULL,
	list_name     TEXT NOT NULL,
	list_id       TEXT NOT NULL,
	name_ascii    TEXT NOT NULL,
	name_tokens   TEXT NOT NULL,
	name_soundex  TEXT NOT NULL,
	alias_ascii   TEXT NOT NULL,
	alias_tokens  TEXT NOT NULL,
	alias_soundex TEXT NOT NULL,
	PRIMARY KEY (generation, list_name, list_id)
);

CREATE INDEX IF NOT EXISTS idx_entities_list ON entities(generation, list_name);
`

const ftsMigration = `
CREATE VIRTUAL TABLE IF NOT EXISTS name_index USING fts5(
	name,
	aliases,
	list_name  UNINDEXED,
	list_id    UNINDEXED,
	generation UNINDEXED
);`

// meta keys.
const (
	metaGeneration     = "generation"
	metaLastBuiltEpoch = "last_built_epoch"
	metaFingerprint    = "name_index_fingerprint"
)

// migrate creates the relational schema and attempts to create the FTS5
// name index. A build of SQLite without FTS5 is tolerated: searches then
// run through the full-scan fallback.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return eris.Wrap(err, "index: migrate")
	}
	if _, err := s.db.ExecContext(ctx, ftsMigration); err != nil {
		if !strings.Contains(err.Error(), "fts5") {
			return eris.Wrap(err, "index: create name index")
		}
	}
	return nil
}

// Generation returns the currently committed generation, 0 when the index
// has never been built.
func (s *Store) Generation(ctx context.Context) (int64, error) {
	v, err := s.metaValue(ctx, metaGeneration)
	if err != nil || v == "" {
		return 0, err
	}
	gen, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "index: parse generation %q", v)
	}
	return gen, nil
}

// LastBuilt returns the commit time of the latest successful rebuild, or the
// zero time when the index has never been built.
func (s *Store) LastBuilt(ctx context.Context) (time.Time, error) {
	v, err := s.metaValue(ctx, metaLastBuiltEpoch)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	epoch, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "index: parse last_built_epoch %q", v)
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// EntityCount returns the number of entities in the current generation.
func (s *Store) EntityCount(ctx context.Context) (int, error) {
	gen, err := s.Generation(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE generation = ?`, gen,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "index: count entities")
	}
	return n, nil
}

// ListCounts returns the entity count per list name in the current
// generation.
func (s *Store) ListCounts(ctx context.Context) (map[string]int, error) {
	gen, err := s.Generation(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_name, COUNT(*) FROM entities WHERE generation = ? GROUP BY list_name`, gen,
	)
	if err != nil {
		return nil, eris.Wrap(err, "index: list counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var list string
		var n int
		if err := rows.Scan(&list, &n); err != nil {
			return nil, eris.Wrap(err, "index: scan list count")
		}
		counts[list] = n
	}
	return counts, eris.Wrap(rows.Err(), "index: list counts iterate")
}

// Readiness reports whether the index can serve screenings and, when it
// cannot, a short reason: db-missing, table-missing, empty-db or
// fts-missing.
func (s *Store) Readiness(ctx context.Context) (bool, string) {
	if _, err := os.Stat(s.path); err != nil {
		return false, "db-missing"
	}
	ok, err := s.tableExists(ctx, "entities")
	if err != nil || !ok {
		return false, "table-missing"
	}
	n, err := s.EntityCount(ctx)
	if err != nil || n == 0 {
		return false, "empty-db"
	}
	ok, err = s.tableExists(ctx, "name_index")
	if err != nil || !ok {
		return false, "fts-missing"
	}
	return true, ""
}

// Built reports whether at least one generation has been committed.
func (s *Store) Built(ctx context.Context) bool {
	gen, err := s.Generation(ctx)
	return err == nil && gen > 0
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "index: probe table %s", name)
	}
	return n > 0, nil
}

// metaValue returns the stored value for key, "" when absent or when the
// meta table itself does not exist yet.
func (s *Store) metaValue(ctx context.Context, key string) (string, error) {
	ok, err := s.tableExists(ctx, "meta")
	if err != nil || !ok {
		return "", err
	}
	var v string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "index: read meta %s", key)
	}
	return v, nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return eris.Wrapf(err, "index: write meta %s", key)
}

// fingerprint summarises the name content of one generation. It gates reuse
// of the FTS index across rebuilds: identical row count and summed name
// length is taken as "names unchanged".
func fingerprint(rowCount, sumNameLen int) string {
	return fmt.Sprintf("%d:%d", rowCount, sumNameLen)
}

// entityRow is the per-entity tuple inserted into both relational tables
// and the name index.
type entityRow struct {
	listName string
	listID   string
	name     string
	aliases  string
	record   string
	nameLen  int
}

func newEntityRow(e *model.Entity) (entityRow, error) {
	record, err := json.Marshal(e)
	if err != nil {
		return entityRow{}, eris.Wrapf(err, "index: marshal entity %s/%s", e.ListName, e.ListID)
	}
	name := e.DisplayName()
	aliases := strings.Join(e.Aliases.Values(), " | ")
	return entityRow{
		listName: e.ListName,
		listID:   e.ListID,
		name:     name,
		aliases:  aliases,
		record:   string(record),
		nameLen:  utf8.RuneCountInString(name),
	}, nil
}

func decodeEntity(record string) (*model.Entity, error) {
	var e model.Entity
	if err := json.Unmarshal([]byte(record), &e); err != nil {
		return nil, eris.Wrap(err, "index: unmarshal entity")
	}
	return &e, nil
}
