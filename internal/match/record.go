package match

import (
	"strings"

	"github.com/halcyonpay/amlscreen/internal/country"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// RecordView is the normalized scoring view of an indexed watchlist entity.
type RecordView struct {
	ListName       string
	ListID         string
	Classification string

	NameRaw     string
	Name        string
	NameTokens  []string
	Aliases     []string
	AliasTokens [][]string

	Country    string
	CountryISO string
	City       string
	State      string
	Post       string
	Street     string
	Addresses  []string

	Nationality    string
	Citizenship    string
	CitizenshipISO string

	BICs  []string
	IBANs []string
	Email string

	DateOfBirth string
	POBCity     string
	POBCountry  string

	IDNumbers []string

	Justification string
	OtherInfo     string
}

// NewRecordView derives the scoring view from a canonical entity. The
// primary address doubles as the street line; alternates and the composed
// city/state/post/country line join the address pool for street matching.
func NewRecordView(e *model.Entity) *RecordView {
	nameRaw := e.DisplayName()
	name := NormalizeText(CollapseDuplicateTokens(nameRaw))

	var rawAddresses []string
	primary := strings.TrimSpace(e.PrimaryAddress)
	if primary != "" {
		rawAddresses = append(rawAddresses, primary)
	}
	combined := strings.TrimSpace(strings.Join(nonEmptyStrings(e.City, e.State, e.PostalCode, e.Country), " "))
	if combined != "" && !containsString(rawAddresses, combined) {
		rawAddresses = append(rawAddresses, combined)
	}
	for _, addr := range e.Addresses.Values() {
		addr = strings.TrimSpace(addr)
		if addr != "" && !containsString(rawAddresses, addr) {
			rawAddresses = append(rawAddresses, addr)
		}
	}
	addresses := make([]string, 0, len(rawAddresses))
	for _, addr := range rawAddresses {
		if n := NormalizeText(addr); n != "" {
			addresses = append(addresses, n)
		}
	}

	pobCity, pobCountry := splitPlaceOfBirth(e.PlaceOfBirthText)

	iso := e.CountryISO
	if iso == "" {
		iso = country.Resolve(e.Country)
	}

	v := &RecordView{
		ListName:       e.ListName,
		ListID:         e.ListID,
		Classification: string(e.Classification),
		NameRaw:        nameRaw,
		Name:           name,
		NameTokens:     Tokenize(name),
		Country:        NormalizeText(e.Country),
		CountryISO:     iso,
		City:           NormalizeText(e.City),
		State:          NormalizeText(e.State),
		Post:           NormalizeText(e.PostalCode),
		Street:         NormalizeText(primary),
		Addresses:      addresses,
		Nationality:    NormalizeText(e.Nationality),
		Citizenship:    NormalizeText(e.CitizenshipCountry),
		CitizenshipISO: e.CitizenshipCountryISO,
		BICs:           normalizeIDs(e.BICs.Values()),
		IBANs:          normalizeIDs(e.IBANs.Values()),
		Email:          NormalizeText(e.EmailAddresses.First()),
		DateOfBirth:    NormalizeText(e.BirthDateString()),
		POBCity:        NormalizeText(pobCity),
		POBCountry:     NormalizeText(pobCountry),
		IDNumbers:      normalizeIDs(e.IDNumberValues()),
		Justification:  e.JustificationText,
		OtherInfo:      e.OtherInformationText,
	}

	for _, alias := range e.Aliases.Values() {
		na := NormalizeText(CollapseDuplicateTokens(alias))
		v.Aliases = append(v.Aliases, na)
		v.AliasTokens = append(v.AliasTokens, Tokenize(na))
	}
	return v
}

// MatchSummary concatenates the record's justification and other
// information for the surfaced match.
func (r *RecordView) MatchSummary() string {
	return strings.TrimSpace(strings.TrimSpace(r.Justification) + " " + strings.TrimSpace(r.OtherInfo))
}

func nonEmptyStrings(vs ...string) []string {
	var out []string
	for _, v := range vs {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsString(vs []string, want string) bool {
	for _, v := range vs {
		if v == want {
			return true
		}
	}
	return false
}
