package index

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// Rebuild replaces the index content wholesale: the entities are written
// under a fresh generation next to the current one, match keys are derived
// per record, the name index is refreshed unless the fingerprint proves it
// unchanged, and the generation counter flips in the same transaction.
// Readers keep serving the previous generation until the commit; an error or
// a cancelled context rolls the new generation back and leaves the previous
// one intact. Returns the number of rows written.
func (s *Store) Rebuild(ctx context.Context, entities []model.Entity) (int, error) {
	if err := s.migrate(ctx); err != nil {
		return 0, err
	}

	current, err := s.Generation(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	ftsPresent, err := s.tableExists(ctx, "name_index")
	if err != nil {
		return 0, err
	}
	storedFP, err := s.metaValue(ctx, metaFingerprint)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "index: begin rebuild")
	}
	defer tx.Rollback()

	// Clear leftovers from a rebuild that died before committing.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE generation >= ?`, next); err != nil {
		return 0, eris.Wrap(err, "index: clear stale generation")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_keys WHERE generation >= ?`, next); err != nil {
		return 0, eris.Wrap(err, "index: clear stale match keys")
	}

	insertEntity, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (generation, list_name, list_id, global_id, classification,
			name, aliases, country_iso, birth_year, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation, list_name, list_id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "index: prepare entity insert")
	}
	defer insertEntity.Close()

	insertKeys, err := tx.PrepareContext(ctx, `
		INSERT INTO match_keys (generation, list_name, list_id,
			name_ascii, name_tokens, name_soundex, alias_ascii, alias_tokens, alias_soundex)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation, list_name, list_id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "index: prepare match key insert")
	}
	defer insertKeys.Close()

	rows := make([]entityRow, 0, len(entities))
	sumNameLen := 0
	for i := range entities {
		e := &entities[i]
		row, err := newEntityRow(e)
		if err != nil {
			return 0, err
		}
		res, err := insertEntity.ExecContext(ctx, next, row.listName, row.listID,
			e.GlobalID, string(e.Classification), row.name, row.aliases,
			e.CountryISO, e.BirthYear, row.record)
		if err != nil {
			return 0, eris.Wrapf(err, "index: insert entity %s/%s", row.listName, row.listID)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// Duplicate (list_name, list_id) within one refresh; first wins.
			continue
		}

		keys := match.BuildKeys(e)
		if _, err := insertKeys.ExecContext(ctx, next, row.listName, row.listID,
			keys.NameASCII, keys.NameTokens, keys.NameSoundex,
			keys.AliasASCII, keys.AliasTokens, keys.AliasSoundex); err != nil {
			return 0, eris.Wrapf(err, "index: insert match keys %s/%s", row.listName, row.listID)
		}

		rows = append(rows, row)
		sumNameLen += row.nameLen
	}

	fp := fingerprint(len(rows), sumNameLen)
	if ftsPresent {
		if fp != storedFP {
			if err := rebuildNameIndex(ctx, tx, next, rows); err != nil {
				return 0, err
			}
		} else {
			zap.L().Debug("name index fingerprint unchanged, reusing",
				zap.String("fingerprint", fp))
		}
	}

	if err := setMeta(ctx, tx, metaGeneration, strconv.FormatInt(next, 10)); err != nil {
		return 0, err
	}
	if err := setMeta(ctx, tx, metaLastBuiltEpoch, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return 0, err
	}
	if err := setMeta(ctx, tx, metaFingerprint, fp); err != nil {
		return 0, err
	}

	// Retain exactly one prior generation for in-flight readers.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE generation < ?`, current); err != nil {
		return 0, eris.Wrap(err, "index: prune old generations")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_keys WHERE generation < ?`, current); err != nil {
		return 0, eris.Wrap(err, "index: prune old match keys")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "index: commit rebuild")
	}

	zap.L().Info("index rebuilt",
		zap.Int64("generation", next),
		zap.Int("rows", len(rows)),
		zap.Bool("name_index_reused", ftsPresent && fp == storedFP),
		zap.Duration("elapsed", time.Since(start)),
	)
	return len(rows), nil
}

// rebuildNameIndex drops and refills the FTS table. FTS rows are not
// generational; the join against the pinned entities generation filters any
// row the next rebuild leaves behind.
func rebuildNameIndex(ctx context.Context, tx *sql.Tx, generation int64, rows []entityRow) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM name_index`); err != nil {
		return eris.Wrap(err, "index: clear name index")
	}
	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO name_index (name, aliases, list_name, list_id, generation)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "index: prepare name index insert")
	}
	defer insert.Close()

	for _, row := range rows {
		if _, err := insert.ExecContext(ctx, row.name, row.aliases,
			row.listName, row.listID, generation); err != nil {
			return eris.Wrapf(err, "index: index name %s/%s", row.listName, row.listID)
		}
	}
	return nil
}
