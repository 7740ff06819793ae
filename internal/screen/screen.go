// Package screen drives one payment message through the full screening
// pipeline: parse, candidate retrieval, per-party scoring, aggregation and
// response assembly, with the response persisted for the viewer.
package screen

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/iso20022"
	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

// Auditor persists one screening outcome to an external audit store.
type Auditor interface {
	Record(ctx context.Context, resp *Response) error
}

// Screener screens payment messages against the sanctions index. It is
// safe for concurrent use; screenings read a pinned index generation and
// only artifact persistence writes to disk.
type Screener struct {
	store      *index.Store
	engine     *watchlist.Engine
	registry   *watchlist.Registry
	log        *watchlist.RefreshLog
	scorer     *match.Scorer
	auditor    Auditor
	outDir     string
	env        string
	showSlight bool
}

// Options configures a Screener beyond its collaborators.
type Options struct {
	// OutDir receives latest.json and history.jsonl. Empty disables
	// artifact persistence.
	OutDir string

	// Environment is stamped into the metadata block.
	Environment string

	// ShowSlightMatches surfaces slight-risk matches in the response.
	ShowSlightMatches bool

	// Auditor, when non-nil, receives every assembled response.
	Auditor Auditor
}

// NewScreener creates a screener.
func NewScreener(store *index.Store, engine *watchlist.Engine, registry *watchlist.Registry, log *watchlist.RefreshLog, scorer *match.Scorer, opts Options) *Screener {
	return &Screener{
		store:      store,
		engine:     engine,
		registry:   registry,
		log:        log,
		scorer:     scorer,
		auditor:    opts.Auditor,
		outDir:     opts.OutDir,
		env:        opts.Environment,
		showSlight: opts.ShowSlightMatches,
	}
}

// Screen runs one message through the pipeline and returns the assembled
// response. An index that has never been built triggers a full refresh
// first. Candidates are retrieved once for all parties; every party is
// scored against every candidate.
func (s *Screener) Screen(ctx context.Context, raw []byte) (*Response, error) {
	started := time.Now()

	msg, err := iso20022.Parse(raw)
	if err != nil {
		return nil, err
	}

	if !s.store.Built(ctx) {
		zap.L().Info("index never built, refreshing before first screening")
		if _, err := s.engine.Refresh(ctx); err != nil {
			return nil, eris.Wrap(err, "screen: initial refresh")
		}
	}

	candidates, err := s.store.Search(ctx, buildQueries(msg), index.SearchOptions{Limit: index.ExhaustiveLimit})
	if err != nil {
		return nil, err
	}

	records := make([]*match.RecordView, len(candidates))
	for i := range candidates {
		records[i] = match.NewRecordView(&candidates[i])
	}

	pcs := make([]match.PartyCandidates, 0, len(msg.Parties))
	for i := range msg.Parties {
		pcs = append(pcs, match.PartyCandidates{
			Party:      match.NormalizeParty(screenInput(&msg.Parties[i], i)),
			Candidates: records,
		})
	}

	outcome := s.scorer.Aggregate(pcs, s.showSlight)
	resp := s.assemble(raw, msg, outcome, started)

	if s.outDir != "" {
		if err := resp.Persist(s.outDir); err != nil {
			zap.L().Warn("artifact write failed", zap.Error(err))
		}
	}
	if s.auditor != nil {
		if err := s.auditor.Record(ctx, resp); err != nil {
			zap.L().Warn("audit insert failed", zap.Error(err))
		}
	}

	zap.L().Info("message screened",
		zap.String("responseId", resp.Metadata.ResponseID),
		zap.String("definition", msg.MessageDefinition()),
		zap.Int("parties", len(msg.Parties)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(outcome.Matches)),
		zap.String("responseCode", outcome.ResponseCode),
		zap.Bool("flagged", outcome.Flagged))

	return resp, nil
}

// buildQueries assembles the retrieval queries: every party display name,
// every party's address lines, and the transaction references when the
// message names no party at all.
func buildQueries(msg *iso20022.Message) []string {
	var queries []string
	names := 0
	for i := range msg.Parties {
		p := &msg.Parties[i]
		if name := p.DisplayName(); name != "" {
			queries = append(queries, name)
			names++
		}
		if len(p.Address.Lines) > 0 {
			queries = append(queries, strings.Join(p.Address.Lines, ", "))
		}
	}
	if names == 0 {
		tx := msg.Transaction()
		for _, ref := range []string{tx.InstructionID, tx.EndToEndID, tx.TxID} {
			if ref != "" {
				queries = append(queries, ref)
			}
		}
	}
	return queries
}

// screenInput converts one parsed party into the scorer's input shape.
func screenInput(p *iso20022.Party, idx int) match.PartyInput {
	city := p.Address.City
	if city == "" {
		city = p.Address.TownLocation
	}
	return match.PartyInput{
		Role:         p.Role,
		Index:        idx,
		Name:         p.DisplayName(),
		Street:       p.Address.Street,
		City:         city,
		State:        p.Address.State,
		PostalCode:   p.Address.PostalCode,
		Country:      p.Address.Country,
		BIC:          p.BIC(),
		IBAN:         p.Account.IBAN,
		Email:        p.Contact.Email,
		DateOfBirth:  p.Contact.DateOfBirth,
		PlaceOfBirth: p.Contact.PlaceOfBirth,
		IDNumbers:    p.IDNumbers(),
	}
}

// listsUsed reports every registered source with its last successful
// download time from the refresh log.
func (s *Screener) listsUsed() []ListUsed {
	sources := s.registry.All()
	out := make([]ListUsed, 0, len(sources))
	for _, src := range sources {
		out = append(out, ListUsed{
			Name:            string(src.ListName()),
			Publisher:       src.Publisher(),
			SourceURL:       src.FeedURL(),
			LastRefreshedAt: s.log.Last(src.Name()),
		})
	}
	return out
}
