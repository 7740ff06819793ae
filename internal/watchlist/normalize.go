package watchlist

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/halcyonpay/amlscreen/internal/country"
	"github.com/halcyonpay/amlscreen/internal/model"
)

// CleanText canonicalises free text: NFKC (which folds non-breaking spaces
// to plain spaces), whitespace runs collapsed, leading and trailing space
// stripped. Case is preserved.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// SplitAliases splits a delimited alias string on ";", "|" or "," in that
// order of preference: the first delimiter present wins. Parts are cleaned
// and deduplicated case-insensitively, first occurrence winning.
func SplitAliases(s string) []string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	parts := []string{s}
	for _, sep := range []string{";", "|", ","} {
		if strings.Contains(s, sep) {
			parts = strings.Split(s, sep)
			break
		}
	}
	set := model.NewStringSet()
	for _, p := range parts {
		set.Add(CleanText(p))
	}
	return set.Values()
}

var (
	vesselKeywords   = []string{"IMO", "MMSI", "MV", "MT", "TANKER", "VESSEL", "SHIP"}
	aircraftKeywords = []string{"AIRCRAFT", "TAIL", "REG"}
)

// canonicalClassification maps the free-text subject types the feeds use
// ("Individual", "Ship", "organisation") onto the canonical buckets.
// Returns "" when the text fits no bucket.
func canonicalClassification(s string) model.Classification {
	t := strings.ToLower(CleanText(s))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "individual") || strings.Contains(t, "person"):
		return model.ClassIndividual
	case strings.Contains(t, "vessel") || strings.Contains(t, "ship"):
		return model.ClassVessel
	case strings.Contains(t, "aircraft") || strings.Contains(t, "plane"):
		return model.ClassAircraft
	case strings.Contains(t, "entity") || strings.Contains(t, "enterprise") ||
		strings.Contains(t, "organisation") || strings.Contains(t, "organization") ||
		strings.Contains(t, "company"):
		return model.ClassEntity
	default:
		return ""
	}
}

// inferClassification decides the bucket when the source stated none.
// Birth or citizenship details mean a person; vessel and aircraft keywords
// are matched as whole tokens of the name and other-information text.
func inferClassification(raw *model.RawRecord) model.Classification {
	if raw.BirthYear != 0 || raw.BirthMonth != 0 || raw.BirthDay != 0 ||
		raw.BirthDateText != "" || raw.Sex != "" || raw.Nationality != "" ||
		raw.CitizenshipCountry != "" {
		return model.ClassIndividual
	}

	tokens := keywordTokens(raw.PrimaryName + " " + raw.FullName + " " + raw.OtherInformation)
	for _, kw := range vesselKeywords {
		if _, ok := tokens[kw]; ok {
			return model.ClassVessel
		}
	}
	for _, kw := range aircraftKeywords {
		if _, ok := tokens[kw]; ok {
			return model.ClassAircraft
		}
	}
	return model.ClassEntity
}

func keywordTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	token := strings.Builder{}
	flush := func() {
		if token.Len() > 0 {
			out[strings.ToUpper(token.String())] = struct{}{}
			token.Reset()
		}
	}
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			token.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// resolveISO returns an upper-cased alpha-2 code: an explicit two-letter
// code wins, otherwise the country text is resolved through the table.
func resolveISO(explicit, countryText string) string {
	explicit = CleanText(explicit)
	if len(explicit) == 2 && isASCIIAlpha(explicit) {
		return strings.ToUpper(explicit)
	}
	return country.Resolve(countryText)
}

func isASCIIAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}

// parseDateText pulls year/month/day from an ISO-style date prefix
// ("1968", "1968-04", "1968-04-17"). Unknown components stay zero.
func parseDateText(t string) (year, month, day int) {
	t = CleanText(t)
	num := func(s string) int {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	if len(t) >= 10 && t[4] == '-' && t[7] == '-' {
		return num(t[0:4]), num(t[5:7]), num(t[8:10])
	}
	if len(t) >= 7 && t[4] == '-' {
		return num(t[0:4]), num(t[5:7]), 0
	}
	if len(t) >= 4 {
		return num(t[0:4]), 0, 0
	}
	return 0, 0, 0
}

// Normalize converts raw source records into canonical entities. Records
// without a list id are dropped; the count of dropped records is returned
// alongside the survivors.
func Normalize(list model.Source, raws []model.RawRecord, prov model.Provenance) ([]model.Entity, int) {
	entities := make([]model.Entity, 0, len(raws))
	dropped := 0

	for i := range raws {
		raw := &raws[i]

		listID := CleanText(raw.ListID)
		if listID == "" {
			dropped++
			continue
		}

		listName := string(raw.Source)
		if listName == "" {
			listName = string(list)
		}

		e := model.Entity{
			ListName: listName,
			ListID:   listID,
			GlobalID: fmt.Sprintf("%s-%s", listName, listID),
		}

		e.Classification = canonicalClassification(string(raw.Classification))
		if e.Classification == "" {
			e.Classification = inferClassification(raw)
		}

		e.PrimaryName = CleanText(raw.PrimaryName)
		e.FullName = CleanText(raw.FullName)
		e.FirstName = CleanText(raw.FirstName)
		e.MiddleName = CleanText(raw.MiddleName)
		e.LastName = CleanText(raw.LastName)
		e.OtherFirstName = CleanText(raw.OtherFirstName)
		if e.FullName == "" {
			e.FullName = strings.Join(nonBlank(e.FirstName, e.MiddleName, e.LastName), " ")
		}

		primaryKey := foldName(e.DisplayName())
		for _, a := range raw.Aliases {
			addAlias(&e.Aliases, a, primaryKey)
		}
		for _, a := range SplitAliases(raw.AliasesText) {
			addAlias(&e.Aliases, a, primaryKey)
		}

		e.BirthYear, e.BirthMonth, e.BirthDay = raw.BirthYear, raw.BirthMonth, raw.BirthDay
		if e.BirthYear == 0 && raw.BirthDateText != "" {
			e.BirthYear, e.BirthMonth, e.BirthDay = parseDateText(raw.BirthDateText)
		}

		e.PlaceOfBirthText = CleanText(raw.PlaceOfBirth)
		e.Sex = CleanText(raw.Sex)
		e.Nationality = CleanText(raw.Nationality)
		e.CitizenshipCountry = CleanText(raw.CitizenshipCountry)
		e.CitizenshipCountryISO = resolveISO(raw.CitizenshipCountryISO, e.CitizenshipCountry)

		e.City = CleanText(raw.City)
		e.State = CleanText(raw.State)
		e.PostalCode = CleanText(raw.PostalCode)
		e.Country = CleanText(raw.Country)
		e.CountryISO = resolveISO(raw.CountryISO, e.Country)

		// The structured street wins as the primary line when both it and a
		// composed free-form line were extracted.
		if street := CleanText(raw.Street); street != "" {
			e.PrimaryAddress = street
		} else {
			e.PrimaryAddress = CleanText(raw.PrimaryAddress)
		}
		for _, addr := range raw.Addresses {
			e.Addresses.Add(CleanText(addr))
		}

		addIdentifiers(&e.BICs, raw.BICs)
		addIdentifiers(&e.IBANs, raw.IBANs)
		addIdentifiers(&e.PassportNumbers, raw.PassportNumbers)
		addIdentifiers(&e.NationalIDNumbers, raw.NationalIDNumbers)
		addIdentifiers(&e.TaxIDNumbers, raw.TaxIDNumbers)
		addIdentifiers(&e.SSNNumbers, raw.SSNNumbers)
		for _, id := range raw.OtherIDNumbers {
			v := model.NormalizeIdentifier(id.Value)
			if v == "" {
				continue
			}
			e.OtherIDNumbers = append(e.OtherIDNumbers, model.LabeledID{
				Label: CleanText(id.Label),
				Value: v,
			})
		}
		for _, v := range raw.EmailAddresses {
			e.EmailAddresses.Add(CleanText(v))
		}
		for _, v := range raw.PhoneNumbers {
			e.PhoneNumbers.Add(CleanText(v))
		}
		for _, v := range raw.Websites {
			e.Websites.Add(CleanText(v))
		}

		e.SanctionsProgramName = CleanText(raw.SanctionsProgram)
		e.JustificationText = CleanText(raw.Justification)
		e.OtherInformationText = CleanText(raw.OtherInformation)

		e.PublicationDate = CleanText(raw.PublicationDate)
		e.EnactmentDate = CleanText(raw.EnactmentDate)
		e.EffectiveDate = CleanText(raw.EffectiveDate)

		e.Provenance = prov

		entities = append(entities, e)
	}

	return entities, dropped
}

// addAlias inserts a cleaned alias unless it collapses to the primary name.
func addAlias(set *model.StringSet, alias, primaryKey string) {
	alias = CleanText(alias)
	if alias == "" || foldName(alias) == primaryKey {
		return
	}
	set.Add(alias)
}

func foldName(s string) string {
	return strings.ToLower(CleanText(s))
}

func addIdentifiers(set *model.StringSet, values []string) {
	for _, v := range values {
		set.Add(model.NormalizeIdentifier(v))
	}
}

func nonBlank(vs ...string) []string {
	var out []string
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
