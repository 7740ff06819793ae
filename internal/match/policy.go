package match

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RiskLevel is the banded label derived from a capped score.
type RiskLevel string

const (
	RiskVeryHigh RiskLevel = "very high risk"
	RiskHigh     RiskLevel = "high risk"
	RiskModerate RiskLevel = "moderate risk"
	RiskSlight   RiskLevel = "slight risk"
	RiskNone     RiskLevel = "no risk"
)

// RiskBands holds the score thresholds for each risk level. The first
// three are inclusive lower bounds; SlightAbove is exclusive.
type RiskBands struct {
	VeryHighFrom float64 `yaml:"very_high_from"`
	HighFrom     float64 `yaml:"high_from"`
	ModerateFrom float64 `yaml:"moderate_from"`
	SlightAbove  float64 `yaml:"slight_above"`
}

// Level maps a capped 0..1 score to its risk band.
func (b RiskBands) Level(score float64) RiskLevel {
	switch {
	case score >= b.VeryHighFrom:
		return RiskVeryHigh
	case score >= b.HighFrom:
		return RiskHigh
	case score >= b.ModerateFrom:
		return RiskModerate
	case score > b.SlightAbove:
		return RiskSlight
	}
	return RiskNone
}

// Weights are the per-signal contributions of the scorer. The *From fields
// are thresholds on the underlying similarity, not contributions.
type Weights struct {
	IDExact float64 `yaml:"id_exact"` // shared by bic, iban and id-number hits

	DOBExact float64 `yaml:"dob_exact"`
	DOBYear  float64 `yaml:"dob_year"`

	POBCountry     float64 `yaml:"pob_country"`
	POBCityExact   float64 `yaml:"pob_city_exact"`
	POBCityPartial float64 `yaml:"pob_city_partial"`

	Name            float64 `yaml:"name"` // exact contribution and strong/partial multiplier
	NameExactFrom   float64 `yaml:"name_exact_from"`
	NameStrongFrom  float64 `yaml:"name_strong_from"`
	NamePartialFrom float64 `yaml:"name_partial_from"`
	NameFloor       float64 `yaml:"name_floor"`

	AliasStrong      float64 `yaml:"alias_strong"`
	AliasStrongFrom  float64 `yaml:"alias_strong_from"`
	AliasPartial     float64 `yaml:"alias_partial"`
	AliasPartialFrom float64 `yaml:"alias_partial_from"`
	AliasWeak        float64 `yaml:"alias_weak"`

	Country float64 `yaml:"country"` // exact text and iso share the weight

	TownExact    float64 `yaml:"town_exact"`
	TownPartial  float64 `yaml:"town_partial"`
	StateExact   float64 `yaml:"state_exact"`
	StatePartial float64 `yaml:"state_partial"`

	StreetExact       float64 `yaml:"street_exact"`
	StreetSimilar     float64 `yaml:"street_similar"` // multiplier on the similarity
	StreetSimilarFrom float64 `yaml:"street_similar_from"`

	EmailExact   float64 `yaml:"email_exact"`
	EmailPartial float64 `yaml:"email_partial"`
}

// DecisionRules turn an aggregated risk score (0..100) into a recommended
// action. EscalateFrom nil disables escalation entirely.
type DecisionRules struct {
	ReleaseUpTo  float64  `yaml:"release_up_to"`
	ReviewFrom   float64  `yaml:"review_from"`
	EscalateFrom *float64 `yaml:"escalate_from"`
}

// Action returns Release, Review, Escalate or N/A for a 0..100 risk score.
func (d DecisionRules) Action(riskScore int) string {
	s := float64(riskScore)
	if s <= d.ReleaseUpTo {
		return "Release"
	}
	if d.EscalateFrom != nil && s >= *d.EscalateFrom {
		return "Escalate"
	}
	if s >= d.ReviewFrom {
		return "Review"
	}
	return "N/A"
}

// Policy bundles every tunable of scoring and aggregation so tests and
// operators can vary them without touching code.
type Policy struct {
	Weights       Weights           `yaml:"weights"`
	Bands         RiskBands         `yaml:"risk_bands"`
	Decision      DecisionRules     `yaml:"decision"`
	ResponseCodes map[string]string `yaml:"response_codes"`
	BonusPerList  int               `yaml:"bonus_per_list"`
}

// DefaultPolicy returns the stock weights and thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			IDExact:           0.90,
			DOBExact:          0.02,
			DOBYear:           0.01,
			POBCountry:        0.01,
			POBCityExact:      0.02,
			POBCityPartial:    0.02,
			Name:              0.85,
			NameExactFrom:     0.95,
			NameStrongFrom:    0.70,
			NamePartialFrom:   0.40,
			NameFloor:         0.55,
			AliasStrong:       0.40,
			AliasStrongFrom:   0.70,
			AliasPartial:      0.25,
			AliasPartialFrom:  0.30,
			AliasWeak:         0.10,
			Country:           0.03,
			TownExact:         0.04,
			TownPartial:       0.02,
			StateExact:        0.03,
			StatePartial:      0.01,
			StreetExact:       0.40,
			StreetSimilar:     0.30,
			StreetSimilarFrom: 0.60,
			EmailExact:        0.90,
			EmailPartial:      0.30,
		},
		Bands: RiskBands{
			VeryHighFrom: 0.90,
			HighFrom:     0.70,
			ModerateFrom: 0.25,
			SlightAbove:  0.10,
		},
		Decision: DecisionRules{
			ReleaseUpTo: 25,
			ReviewFrom:  25,
		},
		ResponseCodes: map[string]string{
			string(RiskVeryHigh): "VERY_HIGH_RISK",
			string(RiskHigh):     "HIGH_RISK",
			string(RiskModerate): "MODERATE_RISK",
			string(RiskSlight):   "SLIGHT_RISK",
			string(RiskNone):     "NONE",
		},
		BonusPerList: 3,
	}
}

// LoadPolicy reads YAML overrides on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "match: read policy %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, eris.Wrapf(err, "match: parse policy %s", path)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that the risk bands are ordered so that a higher score
// can never land in a lower band.
func (p Policy) Validate() error {
	b := p.Bands
	if b.VeryHighFrom < b.HighFrom || b.HighFrom < b.ModerateFrom || b.ModerateFrom < b.SlightAbove {
		return eris.New("match: risk bands out of order")
	}
	if b.SlightAbove < 0 {
		return eris.New("match: slight_above must not be negative")
	}
	if p.BonusPerList < 0 {
		return eris.New("match: bonus_per_list must not be negative")
	}
	return nil
}

// Level maps a capped 0..1 score through the policy's risk bands.
func (p Policy) Level(score float64) RiskLevel {
	return p.Bands.Level(score)
}

// ResponseCode maps a risk level to its wire code, falling back to UNKNOWN
// for levels with no mapping.
func (p Policy) ResponseCode(level RiskLevel) string {
	if code, ok := p.ResponseCodes[string(level)]; ok {
		return code
	}
	return "UNKNOWN"
}
