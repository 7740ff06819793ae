package index

import (
	"context"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/halcyonpay/amlscreen/internal/model"
)

// Retrieval limits. The exhaustive limit exists for the screening engine,
// which scores every candidate and must not miss a listed party to an
// arbitrary cutoff.
const (
	DefaultLimit    = 300
	ExhaustiveLimit = 65000
)

// SearchOptions narrow a candidate retrieval.
type SearchOptions struct {
	// Sources keeps only entities whose list name starts with one of the
	// given prefixes, compared case-insensitively ("ofac" matches both
	// OFAC_SDN and OFAC_CONS).
	Sources []string
	// Limit caps the result set. Zero means DefaultLimit; values above
	// ExhaustiveLimit are clamped.
	Limit int
}

var queryFolder = cases.Fold()

// Search retrieves candidate entities for the given query strings. Each
// query is tokenised into case-folded runs of Unicode letters and digits;
// tokens shorter than three runes are dropped. A candidate must prefix-match
// every surviving token of at least one query in its name or aliases: AND
// within a query, OR across queries, so one retrieval serves every party of
// a message. Results are deduplicated by (list_name, list_id), ordered by
// (list_name, list_id) within one generation, and empty when no query
// survives the length gate.
//
// When the FTS5 name index is unavailable the search degrades to a full
// scan with substring matching over the same fields.
func (s *Store) Search(ctx context.Context, queries []string, opts SearchOptions) ([]model.Entity, error) {
	groups := queryTokenGroups(queries)
	if len(groups) == 0 {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > ExhaustiveLimit {
		limit = ExhaustiveLimit
	}

	gen, err := s.Generation(ctx)
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, nil
	}

	ftsPresent, err := s.tableExists(ctx, "name_index")
	if err != nil {
		return nil, err
	}
	if ftsPresent {
		return s.searchFTS(ctx, gen, groups, opts.Sources, limit)
	}
	return s.searchScan(ctx, gen, groups, opts.Sources, limit)
}

func (s *Store) searchFTS(ctx context.Context, gen int64, groups [][]string, sources []string, limit int) ([]model.Entity, error) {
	query := `
		SELECT DISTINCT e.list_name, e.list_id, e.record
		FROM name_index AS n
		JOIN entities AS e ON e.list_name = n.list_name AND e.list_id = n.list_id
		WHERE name_index MATCH ? AND e.generation = ?`
	args := []any{ftsMatchExpr(groups), gen}

	if clause, filterArgs := sourceFilterSQL("e.list_name", sources); clause != "" {
		query += ` AND ` + clause
		args = append(args, filterArgs...)
	}
	query += ` ORDER BY e.list_name, e.list_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "index: fts search")
	}
	defer rows.Close()

	var out []model.Entity
	seen := make(map[string]struct{})
	for rows.Next() {
		var listName, listID, record string
		if err := rows.Scan(&listName, &listID, &record); err != nil {
			return nil, eris.Wrap(err, "index: scan fts hit")
		}
		key := listName + "\x00" + listID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		e, err := decodeEntity(record)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "index: fts search iterate")
}

// searchScan is the fallback when SQLite was built without FTS5: a row
// matches when every token of some query appears as a substring of its
// case-folded name or aliases.
func (s *Store) searchScan(ctx context.Context, gen int64, groups [][]string, sources []string, limit int) ([]model.Entity, error) {
	query := `SELECT list_name, list_id, name, aliases, record FROM entities WHERE generation = ?`
	args := []any{gen}
	if clause, filterArgs := sourceFilterSQL("list_name", sources); clause != "" {
		query += ` AND ` + clause
		args = append(args, filterArgs...)
	}
	query += ` ORDER BY list_name, list_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "index: scan search")
	}
	defer rows.Close()

	var out []model.Entity
	seen := make(map[string]struct{})
	for rows.Next() {
		var listName, listID, name, aliases, record string
		if err := rows.Scan(&listName, &listID, &name, &aliases, &record); err != nil {
			return nil, eris.Wrap(err, "index: scan row")
		}
		haystack := queryFolder.String(name + " | " + aliases)
		if !anyGroupContained(groups, haystack) {
			continue
		}
		key := listName + "\x00" + listID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		e, err := decodeEntity(record)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
		if len(out) >= limit {
			break
		}
	}
	return out, eris.Wrap(rows.Err(), "index: scan search iterate")
}

func anyGroupContained(groups [][]string, haystack string) bool {
	for _, toks := range groups {
		all := true
		for _, tok := range toks {
			if !strings.Contains(haystack, tok) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// queryTokenGroups folds and tokenises each query separately, deduplicating
// tokens within a query. Queries with no surviving token are dropped and
// identical groups collapse to one, preserving first-seen order.
func queryTokenGroups(queries []string) [][]string {
	var groups [][]string
	seen := make(map[string]struct{})
	for _, q := range queries {
		toks := tokenizeQuery(q)
		if len(toks) == 0 {
			continue
		}
		key := strings.Join(toks, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		groups = append(groups, toks)
	}
	return groups
}

func tokenizeQuery(q string) []string {
	folded := queryFolder.String(q)
	var tokens []string
	seen := make(map[string]struct{})
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := folded[start:end]
		start = -1
		if len([]rune(tok)) < 3 {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	for i, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(folded))
	return tokens
}

// ftsMatchExpr renders the groups as one FTS5 query: tokens of a group are
// ANDed prefix phrases, groups are ORed. Every group is parenthesised so
// the OR never rebinds under FTS5 precedence.
func ftsMatchExpr(groups [][]string) string {
	clauses := make([]string, len(groups))
	for i, toks := range groups {
		parts := make([]string, len(toks))
		for j, tok := range toks {
			parts[j] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"*`
		}
		clauses[i] = "(" + strings.Join(parts, " ") + ")"
	}
	return strings.Join(clauses, " OR ")
}

// sourceFilterSQL builds the case-insensitive list-name prefix filter over
// the given column.
func sourceFilterSQL(column string, sources []string) (string, []any) {
	var parts []string
	var args []any
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		parts = append(parts, `upper(substr(`+column+`, 1, length(?))) = upper(?)`)
		args = append(args, src, src)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
