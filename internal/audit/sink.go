// Package audit persists screening outcomes to Postgres when an audit DSN
// is configured. The sink is strictly a side channel: the screener logs and
// ignores its failures, so a database outage never blocks a screening.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/db"
	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/screen"
)

const schema = `
CREATE TABLE IF NOT EXISTS screenings (
	response_id        UUID PRIMARY KEY,
	created_at         TIMESTAMPTZ,
	message_definition TEXT,
	ingest_hash        TEXT,
	response_code      TEXT,
	risk_score         INT,
	risk_level         TEXT,
	top_match_score    INT,
	recommended_action TEXT,
	flagged            BOOLEAN,
	match_total        INT,
	execution_ms       BIGINT,
	recorded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS screening_matches (
	response_id    UUID NOT NULL,
	party_name     TEXT,
	role           TEXT,
	list_name      TEXT,
	list_id        TEXT,
	sanctions_name TEXT,
	risk_level     TEXT,
	final_score    INT,
	matched_fields TEXT
);

CREATE INDEX IF NOT EXISTS screening_matches_response_idx
	ON screening_matches (response_id);
`

var matchColumns = []string{
	"response_id", "party_name", "role", "list_name", "list_id",
	"sanctions_name", "risk_level", "final_score", "matched_fields",
}

// Sink writes one screenings row plus its match rows per response. It
// implements screen.Auditor.
type Sink struct {
	pool db.Pool
}

// Open connects to the audit database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := NewSink(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSink wraps an existing pool. Callers own migration and close.
func NewSink(pool db.Pool) *Sink {
	return &Sink{pool: pool}
}

// Migrate creates the audit tables when missing.
func (s *Sink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return eris.Wrap(err, "audit: migrate")
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() { s.pool.Close() }

// Record persists one screening outcome. The screenings row is written
// first so match rows never exist without their parent.
func (s *Sink) Record(ctx context.Context, resp *screen.Response) error {
	createdAt, err := time.Parse(time.RFC3339, resp.Metadata.CreatedAt)
	if err != nil {
		// Headerless test messages may carry odd timestamps; the row is
		// still worth keeping.
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO screenings (
			response_id, created_at, message_definition, ingest_hash,
			response_code, risk_score, risk_level, top_match_score,
			recommended_action, flagged, match_total, execution_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		resp.Metadata.ResponseID,
		createdAt,
		resp.Request.MessageDefinition,
		resp.Request.IngestHash,
		resp.Engine.ResponseCode,
		resp.Engine.RiskScore,
		resp.Engine.RiskLevel,
		resp.Engine.TopMatchScore,
		resp.Decision.RecommendedAction,
		resp.Engine.Flagged,
		resp.Engine.MatchCounts.Total,
		resp.Audit.ExecutionMs,
	)
	if err != nil {
		return eris.Wrap(err, "audit: insert screening")
	}

	rows := make([][]any, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		rows = append(rows, []any{
			resp.Metadata.ResponseID,
			m.PartyName,
			m.Role,
			m.SanctionsList,
			m.SanctionsID,
			m.SanctionsName,
			string(m.RiskLevel),
			m.FinalScore,
			fieldSummary(m.MatchedFields),
		})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "screening_matches", matchColumns, rows); err != nil {
		return eris.Wrap(err, "audit: insert matches")
	}
	return nil
}

// fieldSummary flattens matched fields into "field:strength" pairs for the
// audit row; investigators read the full structure from latest.json.
func fieldSummary(fields []match.MatchedField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+":"+f.Strength)
	}
	return strings.Join(parts, ",")
}
