package screen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/iso20022"
	"github.com/halcyonpay/amlscreen/internal/match"
)

// EngineVersion is stamped into the audit block of every response.
const EngineVersion = "0.1.0"

const (
	apiVersion      = "1.0"
	sourceSystem    = "ISO20022 Screen Engine"
	messageStandard = "ISO 20022"
)

// Response is the full screening response returned to callers and
// persisted as latest.json / history.jsonl.
type Response struct {
	Metadata      Metadata         `json:"metadata"`
	Request       RequestInfo      `json:"request"`
	SourceMessage map[string]any   `json:"sourceMessage"`
	ListsUsed     []ListUsed       `json:"listsUsed"`
	Parties       []map[string]any `json:"parties"`
	Transaction   map[string]any   `json:"transaction"`
	Decision      Decision         `json:"decision"`
	RiskSummary   RiskSummary      `json:"riskSummary"`
	Engine        EngineResult     `json:"engine"`
	Matches       []*match.Match   `json:"matches"`
	Audit         AuditInfo        `json:"audit"`
}

// Metadata identifies one screening response.
type Metadata struct {
	APIVersion   string `json:"apiVersion"`
	ResponseID   string `json:"responseId"`
	CreatedAt    string `json:"createdAt"`
	SourceSystem string `json:"sourceSystem"`
	Environment  string `json:"environment"`
}

// RequestInfo describes the screened message.
type RequestInfo struct {
	MessageStandard   string `json:"messageStandard"`
	MessageDefinition string `json:"messageDefinition"`
	IngestHash        string `json:"ingestHash"`
}

// ListUsed names one sanctions list consulted by the screening.
type ListUsed struct {
	Name            string `json:"name"`
	Publisher       string `json:"publisher"`
	SourceURL       string `json:"sourceUrl"`
	LastRefreshedAt string `json:"lastRefreshedAt"`
}

// Decision carries the automated disposition.
type Decision struct {
	AutomatedStatus   string   `json:"automatedStatus"`
	RecommendedAction string   `json:"recommendedAction"`
	ReasonCodes       []string `json:"reasonCodes"`
	Explanations      []string `json:"explanations"`
}

// RiskSummary condenses the outcome for dashboards.
type RiskSummary struct {
	RiskScore int      `json:"riskScore"`
	RiskLevel string   `json:"riskLevel"`
	Drivers   []string `json:"drivers"`
	Time      string   `json:"time"`
}

// EngineResult exposes the raw aggregation figures.
type EngineResult struct {
	TopMatchScore     int               `json:"topMatchScore"`
	TopMatchRiskLevel string            `json:"topMatchRiskLevel"`
	RiskScore         int               `json:"riskScore"`
	RiskLevel         string            `json:"riskLevel"`
	ResponseCode      string            `json:"responseCode"`
	Flagged           bool              `json:"flagged"`
	MatchCounts       match.MatchCounts `json:"matchCounts"`
}

// AuditInfo records when and by which engine build the screening ran.
type AuditInfo struct {
	ScreeningRunAt string `json:"screeningRunAt"`
	EngineVersion  string `json:"engineVersion"`
	ExecutionMs    int64  `json:"executionMs"`
}

// assemble builds the response from the parsed message and the scoring
// outcome. metadata.createdAt prefers the business header's creation time
// so responses stay correlatable with the originating message.
func (s *Screener) assemble(raw []byte, msg *iso20022.Message, outcome *match.Outcome, started time.Time) *Response {
	hash := sha256.Sum256(raw)
	screenedAt := outcome.ScreenedAt.UTC().Format(time.RFC3339)

	createdAt := screenedAt
	if msg.AppHeader != nil && msg.AppHeader.CreatedAt != "" {
		createdAt = msg.AppHeader.CreatedAt
	}

	parties := make([]map[string]any, 0, len(msg.Parties))
	for i := range msg.Parties {
		parties = append(parties, msg.Parties[i].Record())
	}

	matches := outcome.Matches
	if matches == nil {
		matches = []*match.Match{}
	}

	return &Response{
		Metadata: Metadata{
			APIVersion:   apiVersion,
			ResponseID:   uuid.NewString(),
			CreatedAt:    createdAt,
			SourceSystem: sourceSystem,
			Environment:  s.env,
		},
		Request: RequestInfo{
			MessageStandard:   messageStandard,
			MessageDefinition: msg.MessageDefinition(),
			IngestHash:        hex.EncodeToString(hash[:]),
		},
		SourceMessage: msg.SourceMessage(),
		ListsUsed:     s.listsUsed(),
		Parties:       parties,
		Transaction:   msg.TransactionRecord(),
		Decision:      s.decision(outcome),
		RiskSummary:   riskSummary(outcome, screenedAt),
		Engine: EngineResult{
			TopMatchScore:     outcome.TopScore,
			TopMatchRiskLevel: string(outcome.TopRiskLevel),
			RiskScore:         outcome.RiskScore,
			RiskLevel:         string(outcome.RiskLevel),
			ResponseCode:      outcome.ResponseCode,
			Flagged:           outcome.Flagged,
			MatchCounts:       outcome.MatchCounts,
		},
		Matches: matches,
		Audit: AuditInfo{
			ScreeningRunAt: screenedAt,
			EngineVersion:  EngineVersion,
			ExecutionMs:    time.Since(started).Milliseconds(),
		},
	}
}

func (s *Screener) decision(outcome *match.Outcome) Decision {
	d := Decision{
		AutomatedStatus:   outcome.ResponseCode,
		RecommendedAction: s.scorer.Policy().Decision.Action(outcome.RiskScore),
		ReasonCodes:       []string{},
		Explanations:      []string{},
	}
	if outcome.Flagged {
		d.ReasonCodes = append(d.ReasonCodes, "SANCTIONS_MATCH")
		if lists := matchedLists(outcome.Matches); len(lists) > 0 {
			d.Explanations = append(d.Explanations,
				fmt.Sprintf("Name match at or above threshold on %s.", strings.Join(lists, ", ")))
		}
	}
	return d
}

func riskSummary(outcome *match.Outcome, screenedAt string) RiskSummary {
	rs := RiskSummary{
		RiskScore: outcome.RiskScore,
		RiskLevel: string(outcome.RiskLevel),
		Drivers:   []string{},
		Time:      screenedAt,
	}
	if outcome.Flagged {
		rs.Drivers = append(rs.Drivers, "Sanctions name match")
	}
	return rs
}

// matchedLists returns the distinct list names across the surfaced
// matches, sorted for stable explanations.
func matchedLists(matches []*match.Match) []string {
	seen := make(map[string]bool, len(matches))
	var lists []string
	for _, m := range matches {
		if m.SanctionsList == "" || seen[m.SanctionsList] {
			continue
		}
		seen[m.SanctionsList] = true
		lists = append(lists, m.SanctionsList)
	}
	sort.Strings(lists)
	return lists
}

// Persist writes the viewer artifacts under dir: latest.json holds the
// indented response, history.jsonl gets one compact line appended.
func (r *Response) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "screen: create output dir")
	}

	pretty, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return eris.Wrap(err, "screen: encode response")
	}
	if err := os.WriteFile(filepath.Join(dir, "latest.json"), pretty, 0o644); err != nil {
		return eris.Wrap(err, "screen: write latest.json")
	}

	line, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "screen: encode history line")
	}
	f, err := os.OpenFile(filepath.Join(dir, "history.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "screen: open history log")
	}
	defer f.Close() //nolint:errcheck
	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrap(err, "screen: append history log")
	}
	return nil
}
