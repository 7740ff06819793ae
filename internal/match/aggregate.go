package match

import (
	"sort"
	"time"
)

// PartyCandidates pairs one normalized party with the candidate records
// retrieved for it.
type PartyCandidates struct {
	Party      *PartyView
	Candidates []*RecordView
}

// MatchCounts tallies every scored pair, including vetoed and no-risk ones.
type MatchCounts struct {
	Total       int            `json:"total"`
	ByRiskLevel map[string]int `json:"byRiskLevel"`
}

// Outcome is the aggregated result of scoring every party of a request.
type Outcome struct {
	Flagged      bool
	Matches      []*Match // surfaced, deduplicated, slight-risk filtered
	TopRiskLevel RiskLevel
	TopScore     int
	RiskScore    int
	RiskLevel    RiskLevel
	ResponseCode string
	MatchCounts  MatchCounts
	ScreenedAt   time.Time
}

type recordKey struct {
	list string
	id   string
}

type dedupKey struct {
	partyName string
	list      string
	id        string
}

// Aggregate scores every (party, candidate) pair and folds the survivors
// into a single outcome:
//
//  1. per party, keep the best match per (list, id) by finalScore;
//  2. deduplicate across parties by (normalized party name, list, id);
//  3. group by normalized party name, take the group's best score and add
//     a bonus for every additional distinct list seen at moderate risk or
//     above; the overall risk score is the best group aggregate.
//
// Slight-risk matches are withheld from Matches unless showSlight is set;
// they still count in MatchCounts and in the risk score.
func (s *Scorer) Aggregate(parties []PartyCandidates, showSlight bool) *Outcome {
	counts := MatchCounts{
		ByRiskLevel: map[string]int{
			string(RiskVeryHigh): 0,
			string(RiskHigh):     0,
			string(RiskModerate): 0,
			string(RiskSlight):   0,
			string(RiskNone):     0,
		},
	}

	var all []*Match
	var shown []*Match

	for _, pc := range parties {
		best := make(map[recordKey]*Match)
		for _, rec := range pc.Candidates {
			m := s.Score(pc.Party, rec)
			counts.Total++
			if m == nil {
				counts.ByRiskLevel[string(RiskNone)]++
				continue
			}
			// counting uses the integer score, mirroring what clients see
			label := s.policy.Level(float64(m.FinalScore) / 100.0)
			counts.ByRiskLevel[string(label)]++
			if label == RiskNone {
				continue
			}
			key := recordKey{list: m.SanctionsList, id: m.SanctionsID}
			if existing, ok := best[key]; !ok || m.FinalScore > existing.FinalScore {
				best[key] = m
			}
		}
		kept := make([]*Match, 0, len(best))
		for _, m := range best {
			kept = append(kept, m)
		}
		sortMatches(kept)
		for _, m := range kept {
			all = append(all, m)
			if showSlight || m.RiskLevel != RiskSlight {
				shown = append(shown, m)
			}
		}
	}

	all = dedupMatches(all)
	shown = dedupMatches(shown)

	topScore := 0
	for _, m := range all {
		if m.FinalScore > topScore {
			topScore = m.FinalScore
		}
	}

	riskScore := s.riskScore(all)

	topLevel := RiskNone
	overall := RiskNone
	if len(all) > 0 {
		topLevel = s.policy.Level(float64(topScore) / 100.0)
		overall = s.policy.Level(float64(riskScore) / 100.0)
	}

	return &Outcome{
		Flagged:      overall == RiskVeryHigh || overall == RiskHigh || overall == RiskModerate,
		Matches:      shown,
		TopRiskLevel: topLevel,
		TopScore:     topScore,
		RiskScore:    riskScore,
		RiskLevel:    overall,
		ResponseCode: s.policy.ResponseCode(overall),
		MatchCounts:  counts,
		ScreenedAt:   time.Now().UTC(),
	}
}

// riskScore groups matches by normalized party name and takes the best of
// base-plus-list-bonus across groups, capped at 100.
func (s *Scorer) riskScore(all []*Match) int {
	groups := make(map[string][]*Match)
	for _, m := range all {
		key := NormalizeText(CollapseDuplicateTokens(m.PartyName))
		groups[key] = append(groups[key], m)
	}

	risk := 0
	for _, group := range groups {
		base := 0
		lists := make(map[string]bool)
		for _, m := range group {
			if m.FinalScore > base {
				base = m.FinalScore
			}
			switch m.RiskLevel {
			case RiskModerate, RiskHigh, RiskVeryHigh:
				if m.SanctionsList != "" {
					lists[m.SanctionsList] = true
				}
			}
		}
		extra := len(lists) - 1
		if extra < 0 {
			extra = 0
		}
		aggregate := base + s.policy.BonusPerList*extra
		if aggregate > 100 {
			aggregate = 100
		}
		if aggregate > risk {
			risk = aggregate
		}
	}
	return risk
}

// dedupMatches keeps the highest-scoring match per (normalized party name,
// list, id), preserving the order of first appearance.
func dedupMatches(matches []*Match) []*Match {
	bestByKey := make(map[dedupKey]*Match, len(matches))
	var order []dedupKey
	for _, m := range matches {
		key := dedupKey{
			partyName: NormalizeText(CollapseDuplicateTokens(m.PartyName)),
			list:      m.SanctionsList,
			id:        m.SanctionsID,
		}
		existing, ok := bestByKey[key]
		if !ok {
			order = append(order, key)
			bestByKey[key] = m
			continue
		}
		if m.FinalScore > existing.FinalScore {
			bestByKey[key] = m
		}
	}
	out := make([]*Match, 0, len(order))
	for _, key := range order {
		out = append(out, bestByKey[key])
	}
	return out
}

// sortMatches orders by score descending, then list and id for stability.
func sortMatches(ms []*Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].FinalScore != ms[j].FinalScore {
			return ms[i].FinalScore > ms[j].FinalScore
		}
		if ms[i].SanctionsList != ms[j].SanctionsList {
			return ms[i].SanctionsList < ms[j].SanctionsList
		}
		return ms[i].SanctionsID < ms[j].SanctionsID
	})
}
