package match

import (
	"strings"

	"github.com/halcyonpay/amlscreen/internal/country"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// PartyInput is one screened party as extracted from a payment message.
// Any zero field simply contributes no signal.
type PartyInput struct {
	Role  string
	Index int

	Name    string
	Aliases []string

	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	CountryISO string

	Nationality string
	Citizenship string

	BIC   string
	IBAN  string
	Email string

	DateOfBirth  string
	PlaceOfBirth string // "city" or "city, country"

	IDNumbers []string
}

// PartyView is the normalized scoring view of a party, shaped symmetrically
// with RecordView so the scorer works on both sides with the same rules.
type PartyView struct {
	Role  string
	Index int

	NameRaw     string
	Name        string
	NameTokens  []string
	Aliases     []string
	AliasTokens [][]string

	Street   string
	Town     string
	State    string
	PostCode string

	Country    string
	CountryISO string

	Nationality string
	Citizenship string

	BIC   string
	IBAN  string
	Email string

	DateOfBirth string
	POBCity     string
	POBCountry  string

	IDNumbers []string
}

// NormalizeParty builds the scoring view of a party. Dates are kept as
// plain text for the scorer's prefix and year checks; identifiers are
// upper-cased and space-stripped.
func NormalizeParty(in PartyInput) *PartyView {
	nameRaw := strings.TrimSpace(in.Name)
	name := NormalizeText(CollapseDuplicateTokens(nameRaw))

	pobCity, pobCountry := splitPlaceOfBirth(in.PlaceOfBirth)

	v := &PartyView{
		Role:        in.Role,
		Index:       in.Index,
		NameRaw:     nameRaw,
		Name:        name,
		NameTokens:  Tokenize(name),
		Street:      NormalizeText(in.Street),
		Town:        NormalizeText(in.City),
		State:       NormalizeText(in.State),
		PostCode:    NormalizeText(in.PostalCode),
		Country:     NormalizeText(in.Country),
		CountryISO:  country.Resolve(coalesce(in.CountryISO, in.Country)),
		Nationality: NormalizeText(in.Nationality),
		Citizenship: NormalizeText(in.Citizenship),
		BIC:         model.NormalizeIdentifier(in.BIC),
		IBAN:        model.NormalizeIdentifier(in.IBAN),
		Email:       NormalizeText(in.Email),
		DateOfBirth: NormalizeText(in.DateOfBirth),
		POBCity:     NormalizeText(pobCity),
		POBCountry:  NormalizeText(pobCountry),
		IDNumbers:   normalizeIDs(in.IDNumbers),
	}

	for _, alias := range in.Aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		na := NormalizeText(CollapseDuplicateTokens(alias))
		v.Aliases = append(v.Aliases, na)
		v.AliasTokens = append(v.AliasTokens, Tokenize(na))
	}
	return v
}

// splitPlaceOfBirth separates "Tripoli, Libya" into city and country on
// the first comma. Without a comma the whole value is the city.
func splitPlaceOfBirth(v string) (city, countryName string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	if i := strings.Index(v, ","); i >= 0 {
		return strings.TrimSpace(v[:i]), strings.TrimSpace(v[i+1:])
	}
	return v, ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

func normalizeIDs(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		n := model.NormalizeIdentifier(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
