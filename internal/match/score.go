package match

import (
	"math"
	"regexp"
	"strings"
)

// MatchedField names one signal that contributed to a match.
type MatchedField struct {
	Field    string `json:"field"`
	Strength string `json:"strength"`
}

// Match is one scored candidate pair surfaced to the response.
type Match struct {
	PartyName        string         `json:"partyName"`
	Role             string         `json:"role"`
	SanctionsName    string         `json:"sanctionsName"`
	SanctionsAliases []string       `json:"sanctionsAliases"`
	SanctionsList    string         `json:"sanctionsList"`
	SanctionsID      string         `json:"sanctionsId"`
	RiskLevel        RiskLevel      `json:"riskLevel"`
	FinalScore       int            `json:"finalScore"`
	MatchedFields    []MatchedField `json:"matchedFields"`
	MatchSummary     string         `json:"matchSummary"`
}

// Scorer evaluates party/record pairs under one policy.
type Scorer struct {
	policy Policy
}

// NewScorer returns a scorer bound to the given policy.
func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy}
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy { return s.policy }

var yearPattern = regexp.MustCompile(`\d{4}`)

// Score evaluates one party against one record. Scoring is additive over
// independent signals, capped at 1.0. The only way to get nil back is the
// date-of-birth veto: contradicting birth years, or contradicting full
// YYYY-MM-DD prefixes, nullify the pair regardless of other signals.
func (s *Scorer) Score(party *PartyView, rec *RecordView) *Match {
	w := s.policy.Weights
	score := 0.0
	var fields []MatchedField
	add := func(points float64, field, strength string) {
		score += points
		fields = append(fields, MatchedField{Field: field, Strength: strength})
	}

	if party.BIC != "" && containsString(rec.BICs, party.BIC) {
		add(w.IDExact, "bic", "exact")
	}
	if party.IBAN != "" && containsString(rec.IBANs, party.IBAN) {
		add(w.IDExact, "iban", "exact")
	}
	if len(party.IDNumbers) > 0 && len(rec.IDNumbers) > 0 && intersects(party.IDNumbers, rec.IDNumbers) {
		add(w.IDExact, "id_number", "exact")
	}

	if party.DateOfBirth != "" && rec.DateOfBirth != "" {
		partyYear := yearPattern.FindString(party.DateOfBirth)
		recYear := yearPattern.FindString(rec.DateOfBirth)
		if partyYear != "" && recYear != "" && partyYear != recYear {
			return nil
		}
		if len(party.DateOfBirth) >= 10 && len(rec.DateOfBirth) >= 10 {
			if party.DateOfBirth[:10] != rec.DateOfBirth[:10] {
				return nil
			}
			add(w.DOBExact, "date_of_birth", "exact")
		} else if partyYear != "" && partyYear == recYear {
			add(w.DOBYear, "date_of_birth", "year")
		}
	}

	if party.POBCountry != "" && party.POBCountry == rec.POBCountry {
		add(w.POBCountry, "place_of_birth", "country")
	}
	if party.POBCity != "" && rec.POBCity != "" {
		if party.POBCity == rec.POBCity {
			add(w.POBCityExact, "place_of_birth", "city_exact")
		} else if strings.Contains(rec.POBCity, party.POBCity) || strings.Contains(party.POBCity, rec.POBCity) {
			add(w.POBCityPartial, "place_of_birth", "city_partial")
		}
	}

	nameJaccard := Jaccard(party.NameTokens, rec.NameTokens)
	namePoints := 0.0
	nameStrength := ""
	switch {
	case nameJaccard >= w.NameExactFrom:
		namePoints = w.Name
		nameStrength = "exact"
	case nameJaccard >= w.NameStrongFrom:
		namePoints = w.Name * nameJaccard
		nameStrength = "strong"
	case nameJaccard >= w.NamePartialFrom:
		namePoints = w.Name * nameJaccard
		nameStrength = "partial"
	}
	if nameStrength != "" {
		fields = append(fields, MatchedField{Field: "name", Strength: nameStrength})
	}

	// Floor: matching first and last tokens, or the party name being a
	// token subset of the record name, guarantees at least NameFloor.
	if len(party.NameTokens) >= 2 {
		firstLast := len(rec.NameTokens) >= 2 &&
			party.NameTokens[0] == rec.NameTokens[0] &&
			party.NameTokens[len(party.NameTokens)-1] == rec.NameTokens[len(rec.NameTokens)-1]
		if (firstLast || tokenSubset(party.NameTokens, rec.NameTokens)) && namePoints < w.NameFloor {
			namePoints = w.NameFloor
		}
	}
	score += namePoints

	if len(party.AliasTokens) > 0 && len(rec.AliasTokens) > 0 {
		aliasScore := bestAliasScore(party.AliasTokens, rec.AliasTokens)
		switch {
		case aliasScore >= w.AliasStrongFrom:
			add(w.AliasStrong, "alias", "strong")
		case aliasScore >= w.AliasPartialFrom:
			add(w.AliasPartial, "alias", "partial")
		case aliasScore > 0:
			add(w.AliasWeak, "alias", "match")
		}
	}

	if party.Country != "" && party.Country == rec.Country {
		add(w.Country, "country", "exact")
	} else if party.CountryISO != "" && party.CountryISO == rec.CountryISO {
		add(w.Country, "country", "iso")
	}

	if party.Town != "" && (rec.City != "" || rec.State != "") {
		if party.Town == rec.City {
			add(w.TownExact, "city", "exact")
		} else if (rec.City != "" && (strings.Contains(rec.City, party.Town) || strings.Contains(party.Town, rec.City))) ||
			(rec.State != "" && (strings.Contains(rec.State, party.Town) || strings.Contains(party.Town, rec.State))) {
			add(w.TownPartial, "city", "partial")
		}
	}

	if party.State != "" && (rec.State != "" || rec.City != "") {
		if party.State == rec.State {
			add(w.StateExact, "state", "exact")
		} else if (rec.State != "" && strings.Contains(rec.State, party.State)) ||
			(rec.City != "" && strings.Contains(rec.City, party.State)) {
			add(w.StatePartial, "state", "partial")
		}
	}

	if party.Street != "" {
		streetTokens := Tokenize(party.Street)
		exact := rec.Street != "" && party.Street == rec.Street
		best := 0.0
		if !exact {
			if rec.Street != "" {
				best = Jaccard(streetTokens, Tokenize(rec.Street))
			}
			for _, addr := range rec.Addresses {
				if party.Street == addr {
					exact = true
					break
				}
				if sim := Jaccard(streetTokens, Tokenize(addr)); sim > best {
					best = sim
				}
			}
		}
		if exact {
			add(w.StreetExact, "street", "exact")
		} else if best > w.StreetSimilarFrom {
			add(w.StreetSimilar*best, "street", "partial")
		}
	}

	if party.Email != "" && rec.Email != "" {
		if party.Email == rec.Email {
			add(w.EmailExact, "email", "exact")
		} else if strings.Contains(party.Email, "@") && strings.Contains(rec.Email, "@") {
			pLocal, pDomain, _ := strings.Cut(party.Email, "@")
			rLocal, rDomain, _ := strings.Cut(rec.Email, "@")
			if pDomain == rDomain &&
				(pLocal == rLocal || strings.Contains(rLocal, pLocal) || strings.Contains(pLocal, rLocal)) &&
				absInt(len(pLocal)-len(rLocal)) <= 2 {
				add(w.EmailPartial, "email", "partial")
			}
		}
	}

	// Only the name floor can add points without a named signal.
	if len(fields) == 0 && score > 0 {
		fields = append(fields, MatchedField{Field: "name", Strength: "partial"})
	}

	if score > 1.0 {
		score = 1.0
	}
	finalScore := int(math.Round(score * 100))
	if finalScore > 100 {
		finalScore = 100
	}

	return &Match{
		PartyName:        party.NameRaw,
		Role:             party.Role,
		SanctionsName:    rec.NameRaw,
		SanctionsAliases: rec.Aliases,
		SanctionsList:    rec.ListName,
		SanctionsID:      rec.ListID,
		RiskLevel:        s.policy.Level(score),
		FinalScore:       finalScore,
		MatchedFields:    fields,
		MatchSummary:     rec.MatchSummary(),
	}
}

// bestAliasScore is the highest Jaccard across every (party alias, record
// alias) token-set pair.
func bestAliasScore(party, record [][]string) float64 {
	best := 0.0
	for _, p := range party {
		for _, r := range record {
			if s := Jaccard(p, r); s > best {
				best = s
			}
		}
	}
	return best
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

func tokenSubset(sub, super []string) bool {
	set := make(map[string]bool, len(super))
	for _, v := range super {
		set[v] = true
	}
	for _, v := range sub {
		if !set[v] {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
