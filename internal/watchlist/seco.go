package watchlist

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const secoFeedURL = "https://www.sesam.search.admin.ch/sesam-search-web/pages/downloadXmlGesamtliste.xhtml?action=downloadXmlGesamtlisteAction&lang=en"

// SECO reads the Swiss sesam consolidated list. The file is relational:
// targets reference sanctions-set and place elements by ssid, so extraction
// runs two passes — build the lookup maps, then walk the targets.
type SECO struct{}

func (s *SECO) Name() string           { return "seco" }
func (s *SECO) ListName() model.Source { return model.SourceSECO }
func (s *SECO) Publisher() string      { return "SECO (Switzerland)" }
func (s *SECO) FeedURL() string        { return secoFeedURL }
func (s *SECO) SnapshotFile() string   { return "SECO.xml" }

type secoDocument struct {
	Programs []secoProgram `xml:"sanctions-program"`
	Places   []secoPlace   `xml:"place"`
	Targets  []secoTarget  `xml:"target"`
}

type secoProgram struct {
	SSID  string             `xml:"ssid,attr"`
	Names []secoProgramName  `xml:"program-name"`
	Sets  []secoSanctionsSet `xml:"sanctions-set"`
}

type secoProgramName struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type secoSanctionsSet struct {
	SSID string `xml:"ssid,attr"`
	Text string `xml:",chardata"`
}

type secoPlace struct {
	SSID     string      `xml:"ssid,attr"`
	Location string      `xml:"location"`
	Area     string      `xml:"area"`
	Country  secoCountry `xml:"country"`
}

func (p *secoPlace) country() string { return strings.TrimSpace(p.Country.Text) }

func (p *secoPlace) countryISO() string {
	return strings.ToUpper(strings.TrimSpace(p.Country.ISOCode))
}

type secoCountry struct {
	ISOCode string `xml:"iso-code,attr"`
	Text    string `xml:",chardata"`
}

type secoTarget struct {
	SSID              string             `xml:"ssid,attr"`
	SanctionsSetIDs   []string           `xml:"sanctions-set-id"`
	ForeignIdentifier string             `xml:"foreign-identifier"`
	Modifications     []secoModification `xml:"modification"`
	Individual        *secoSubject       `xml:"individual"`
	Entity            *secoSubject       `xml:"entity"`
	Object            *secoSubject       `xml:"object"`
	Justifications    []string           `xml:"justification"`
	OtherInformation  []string           `xml:"other-information"`
	GenericAttributes []secoGenericAttr  `xml:"generic-attribute"`
}

type secoModification struct {
	EnactmentDate   string `xml:"enactment-date,attr"`
	PublicationDate string `xml:"publication-date,attr"`
	EffectiveDate   string `xml:"effective-date,attr"`
}

type secoSubject struct {
	Sex        string         `xml:"sex,attr"`
	Type       string         `xml:"type,attr"`
	Identities []secoIdentity `xml:"identity"`
}

type secoIdentity struct {
	Main          string             `xml:"main,attr"`
	Names         []secoName         `xml:"name"`
	Nationalities []secoNationality  `xml:"nationality"`
	BirthDates    []secoDayMonthYear `xml:"day-month-year"`
	BirthPlaces   []secoPlaceRef     `xml:"place-of-birth"`
	Addresses     []secoAddress      `xml:"address"`
	Documents     []secoIdentityDoc  `xml:"identification-document"`
}

// Empty or absent main attributes mark the primary identity; the feed only
// writes main="false" on the extras.
func (i *secoIdentity) isMain() bool {
	switch strings.ToLower(strings.TrimSpace(i.Main)) {
	case "", "true", "1":
		return true
	}
	return false
}

type secoName struct {
	NameType string         `xml:"name-type,attr"`
	Quality  string         `xml:"quality,attr"`
	Lang     string         `xml:"lang,attr"`
	Parts    []secoNamePart `xml:"name-part"`
}

type secoNamePart struct {
	Type  string        `xml:"name-part-type,attr"`
	Value secoNameValue `xml:"value"`
}

// secoNameValue carries either a bare value or a list of spelling-variant
// children; the variants replace the bare text when present.
type secoNameValue struct {
	Text     string   `xml:",chardata"`
	Variants []string `xml:"spelling-variant"`
}

func (v *secoNameValue) variants() []string {
	if len(v.Variants) > 0 {
		var out []string
		for _, s := range v.Variants {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if t := strings.TrimSpace(v.Text); t != "" {
		return []string{t}
	}
	return nil
}

type secoNationality struct {
	Country secoCountry `xml:"country"`
}

type secoDayMonthYear struct {
	Day   string `xml:"day,attr"`
	Month string `xml:"month,attr"`
	Year  string `xml:"year,attr"`
}

type secoPlaceRef struct {
	PlaceID string `xml:"place-id,attr"`
}

type secoAddress struct {
	PlaceID        string `xml:"place-id,attr"`
	AddressDetails string `xml:"address-details"`
	POBox          string `xml:"p-o-box"`
	ZipCode        string `xml:"zip-code"`
	Remark         string `xml:"remark"`
	CareOf         string `xml:"c-o"`
}

type secoIdentityDoc struct {
	DocumentType string `xml:"document-type,attr"`
	Number       string `xml:"number"`
	Issuer       string `xml:"issuer"`
}

type secoGenericAttr struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

func (s *SECO) Extract(data []byte) ([]model.RawRecord, error) {
	var doc secoDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse seco feed")
	}

	programBySet := make(map[string]string)
	for i := range doc.Programs {
		prog := &doc.Programs[i]
		var programName string
		for _, pn := range prog.Names {
			if t := strings.TrimSpace(pn.Text); t != "" {
				programName = t
			}
		}
		for _, set := range prog.Sets {
			id := strings.TrimSpace(set.SSID)
			if id == "" {
				continue
			}
			if programName != "" {
				programBySet[id] = programName
			} else if setName := strings.TrimSpace(set.Text); setName != "" {
				programBySet[id] = setName
			}
		}
	}

	placeByID := make(map[string]*secoPlace, len(doc.Places))
	for i := range doc.Places {
		if id := strings.TrimSpace(doc.Places[i].SSID); id != "" {
			placeByID[id] = &doc.Places[i]
		}
	}

	records := make([]model.RawRecord, 0, len(doc.Targets))
	for i := range doc.Targets {
		records = append(records, secoRecord(&doc.Targets[i], programBySet, placeByID))
	}
	return records, nil
}

var (
	secoEmailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	secoURLPattern   = regexp.MustCompile(`(?:https?://|www\.)[^\s;]+`)
	secoPhonePattern = regexp.MustCompile(`\+?\d[\d\-\s().]{6,}\d`)

	secoEmailValue = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	secoURLValue   = regexp.MustCompile(`^(?:https?://|www\.)\S+$`)
	secoPhoneValue = regexp.MustCompile(`^\+?[0-9][0-9\s().\-]{5,}$`)
)

func secoRecord(t *secoTarget, programBySet map[string]string, placeByID map[string]*secoPlace) model.RawRecord {
	rec := model.RawRecord{
		Source: model.SourceSECO,
		ListID: strings.TrimSpace(t.SSID),
	}
	setFirst := func(dst *string, v string) {
		if *dst == "" {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
	}
	aliasSeen := make(map[string]bool)
	addAlias := func(name string) {
		if name == "" || name == rec.PrimaryName || aliasSeen[name] {
			return
		}
		aliasSeen[name] = true
		rec.Aliases = append(rec.Aliases, name)
	}

	var programs []string
	for _, id := range t.SanctionsSetIDs {
		if name := programBySet[strings.TrimSpace(id)]; name != "" {
			programs = append(programs, name)
		}
	}
	rec.SanctionsProgram = strings.Join(programs, "; ")

	// Targets carry one modification element per amendment; the newest one
	// comes last.
	for i := range t.Modifications {
		m := &t.Modifications[i]
		if d := strings.TrimSpace(m.EnactmentDate); d != "" {
			rec.EnactmentDate = d
		}
		if d := strings.TrimSpace(m.PublicationDate); d != "" {
			rec.PublicationDate = d
		}
		if d := strings.TrimSpace(m.EffectiveDate); d != "" {
			rec.EffectiveDate = d
		}
	}

	var subject *secoSubject
	switch {
	case t.Individual != nil:
		subject = t.Individual
		rec.Classification = model.ClassIndividual
		rec.Sex = strings.TrimSpace(t.Individual.Sex)
	case t.Entity != nil:
		subject = t.Entity
		rec.Classification = model.ClassEntity
	case t.Object != nil:
		subject = t.Object
		rec.Classification = secoObjectClass(t.Object.Type)
	}

	if subject != nil {
		for ii := range subject.Identities {
			identity := &subject.Identities[ii]
			isMain := identity.isMain()

			for ni := range identity.Names {
				name := &identity.Names[ni]
				// Display fields take the first spelling variant of each
				// part; every variant stays available for alias expansion.
				var display, givenFirst, furtherFirst, fatherFirst, familyFirst []string
				var given, further, father, family, whole []string
				for pi := range name.Parts {
					part := &name.Parts[pi]
					variants := part.Value.variants()
					if len(variants) == 0 {
						continue
					}
					display = append(display, variants[0])
					switch strings.TrimSpace(part.Type) {
					case "given-name":
						givenFirst = append(givenFirst, variants[0])
						given = append(given, variants...)
					case "further-given-name":
						furtherFirst = append(furtherFirst, variants[0])
						further = append(further, variants...)
					case "father-name":
						fatherFirst = append(fatherFirst, variants[0])
						father = append(father, variants...)
					case "family-name":
						familyFirst = append(familyFirst, variants[0])
						family = append(family, variants...)
					case "whole-name":
						whole = append(whole, variants...)
					}
				}

				assembled := strings.Join(display, " ")

				if strings.TrimSpace(name.NameType) == "primary-name" || isMain {
					if rec.PrimaryName == "" {
						rec.PrimaryName = assembled
						setFirst(&rec.FirstName, strings.Join(givenFirst, " "))
						setFirst(&rec.MiddleName, joinClean([]string{strings.Join(furtherFirst, " "), strings.Join(fatherFirst, " ")}, " "))
						setFirst(&rec.LastName, strings.Join(familyFirst, " "))
					} else {
						addAlias(assembled)
					}
				} else {
					addAlias(assembled)
				}

				// Whole-name spelling variants are aliases in their own right.
				for _, w := range whole {
					addAlias(w)
				}

				// Part variants multiply, so every combination of given,
				// middle and family variants is a searchable alias.
				if len(given)+len(further)+len(father)+len(family) > 0 {
					var middles []string
					midSeen := make(map[string]bool)
					addMiddle := func(v string) {
						if v != "" && !midSeen[v] {
							midSeen[v] = true
							middles = append(middles, v)
						}
					}
					for _, a := range further {
						for _, b := range father {
							addMiddle(joinClean([]string{a, b}, " "))
						}
					}
					for _, a := range further {
						addMiddle(a)
					}
					for _, b := range father {
						addMiddle(b)
					}
					if len(middles) == 0 {
						middles = []string{""}
					}
					givens := given
					if len(givens) == 0 {
						givens = []string{""}
					}
					families := family
					if len(families) == 0 {
						families = []string{""}
					}
					for _, g := range givens {
						for _, m := range middles {
							for _, f := range families {
								addAlias(joinClean([]string{g, m, f}, " "))
							}
						}
					}
				}
			}

			for i := range identity.Nationalities {
				country := &identity.Nationalities[i].Country
				setFirst(&rec.Nationality, country.Text)
				if iso := strings.TrimSpace(country.ISOCode); iso != "" && rec.CitizenshipCountryISO == "" {
					rec.CitizenshipCountryISO = strings.ToUpper(iso)
				}
				setFirst(&rec.CitizenshipCountry, rec.Nationality)
			}

			for i := range identity.BirthDates {
				d := &identity.BirthDates[i]
				if rec.BirthYear == 0 {
					rec.BirthYear = atoiSafe(d.Year)
				}
				if rec.BirthMonth == 0 {
					rec.BirthMonth = atoiSafe(d.Month)
				}
				if rec.BirthDay == 0 {
					rec.BirthDay = atoiSafe(d.Day)
				}
			}

			for i := range identity.BirthPlaces {
				place := placeByID[strings.TrimSpace(identity.BirthPlaces[i].PlaceID)]
				if place == nil {
					continue
				}
				setFirst(&rec.Country, place.country())
				if iso := place.countryISO(); iso != "" && rec.CountryISO == "" {
					rec.CountryISO = iso
				}
				setFirst(&rec.PlaceOfBirth, joinClean([]string{place.Location, place.Area, place.country()}, ", "))
			}

			for i := range identity.Addresses {
				addr := &identity.Addresses[i]
				formatted := joinClean([]string{addr.AddressDetails, addr.POBox, addr.CareOf, addr.Remark}, ", ")
				setFirst(&rec.PrimaryAddress, formatted)
				setFirst(&rec.PostalCode, addr.ZipCode)
				var location, area, countryText, iso string
				if place := placeByID[strings.TrimSpace(addr.PlaceID)]; place != nil {
					location = strings.TrimSpace(place.Location)
					area = strings.TrimSpace(place.Area)
					countryText = place.country()
					iso = place.countryISO()
				}
				setFirst(&rec.City, location)
				setFirst(&rec.State, area)
				setFirst(&rec.Country, countryText)
				if iso != "" && rec.CountryISO == "" {
					rec.CountryISO = iso
				}
				if line := joinClean([]string{formatted, location, area, countryText, addr.ZipCode}, " | "); line != "" {
					rec.Addresses = append(rec.Addresses, line)
				}
			}

			for i := range identity.Documents {
				doc := &identity.Documents[i]
				number := strings.TrimSpace(doc.Number)
				if number == "" {
					continue
				}
				if issuer := strings.TrimSpace(doc.Issuer); issuer != "" {
					number += " (" + issuer + ")"
				}
				docType := strings.ToLower(strings.TrimSpace(doc.DocumentType))
				switch {
				case strings.Contains(docType, "passport"):
					rec.AddIdentifier(model.BucketPassport, "", number)
				case strings.Contains(docType, "id"), strings.Contains(docType, "driving"),
					strings.Contains(docType, "permit"):
					rec.AddIdentifier(model.BucketNationalID, "", number)
				default:
					rec.AddIdentifier(model.BucketOther, strings.TrimSpace(doc.DocumentType), number)
				}
			}
		}
	}

	rec.Justification = joinClean(t.Justifications, " | ")

	var info []string
	for _, oi := range t.OtherInformation {
		if oi = strings.TrimSpace(oi); oi == "" {
			continue
		}
		info = append(info, oi)
		// Free-text remarks routinely embed contact details worth indexing.
		for _, m := range secoEmailPattern.FindAllString(oi, -1) {
			secoAppendUnique(&rec.EmailAddresses, m)
		}
		for _, m := range secoURLPattern.FindAllString(oi, -1) {
			secoAppendUnique(&rec.Websites, m)
		}
		for _, m := range secoPhonePattern.FindAllString(oi, -1) {
			secoAppendUnique(&rec.PhoneNumbers, strings.TrimSpace(m))
		}
	}
	if t.Object != nil {
		if ot := strings.TrimSpace(t.Object.Type); ot != "" {
			info = append(info, "Object type: "+ot)
		}
	}
	if fid := strings.TrimSpace(t.ForeignIdentifier); fid != "" {
		info = append(info, "Foreign identifier: "+fid)
	}
	rec.OtherInformation = strings.Join(info, " | ")

	for i := range t.GenericAttributes {
		secoGenericInto(&rec, &t.GenericAttributes[i])
	}

	if rec.PrimaryName == "" {
		rec.PrimaryName = joinClean([]string{rec.FirstName, rec.MiddleName, rec.LastName}, " ")
	}
	rec.FullName = rec.PrimaryName

	return rec
}

func secoObjectClass(objectType string) model.Classification {
	t := strings.ToLower(strings.TrimSpace(objectType))
	switch {
	case strings.Contains(t, "vessel"), strings.Contains(t, "ship"), strings.Contains(t, "imo"):
		return model.ClassVessel
	case strings.Contains(t, "aircraft"), strings.Contains(t, "plane"):
		return model.ClassAircraft
	}
	return model.ClassEntity
}

// secoGenericInto routes a generic-attribute into the matching identifier
// bucket. The attribute names are uncontrolled and show up in all four
// national languages, so exact synonyms are tried first and substring plus
// value-shape heuristics mop up the rest.
func secoGenericInto(rec *model.RawRecord, attr *secoGenericAttr) {
	value := strings.TrimSpace(attr.Text)
	if value == "" {
		return
	}
	name := strings.ToLower(strings.TrimSpace(attr.Name))
	switch name {
	case "email", "e-mail", "mail", "email-address", "e_mail",
		"adresse e-mail", "e-mail adresse", "e-mail-adresse",
		"courriel", "posta elettronica", "mailadresse":
		rec.AddIdentifier(model.BucketEmail, "", value)
	case "phone", "telephone", "tel", "mobile", "mob", "phone-number",
		"phone no", "phone number", "cell", "cellphone", "cell phone",
		"gsm", "landline", "telefon", "handy", "telefono", "cellulare":
		rec.AddIdentifier(model.BucketPhone, "", value)
	case "fax", "fax-number", "telefax", "telecopieur":
		rec.AddIdentifier(model.BucketFax, "", value)
	case "url", "website", "web", "site", "homepage", "home-page",
		"site web", "site internet", "sito web", "sito internet",
		"internet", "www", "www-address", "website-address":
		rec.AddIdentifier(model.BucketWebsite, "", value)
	case "bic", "swift":
		rec.AddIdentifier(model.BucketBIC, "", value)
	case "iban":
		rec.AddIdentifier(model.BucketIBAN, "", value)
	case "ssn", "social-security-number", "nin":
		rec.AddIdentifier(model.BucketSSN, "", value)
	case "tax-id", "tin", "tax-number":
		rec.AddIdentifier(model.BucketTaxID, "", value)
	default:
		switch {
		case strings.Contains(name, "fax"), strings.Contains(name, "telecopieur"),
			strings.Contains(strings.ToLower(value), "fax"):
			rec.AddIdentifier(model.BucketFax, "", value)
		case strings.Contains(name, "phone"), strings.Contains(name, "tel"),
			strings.Contains(name, "mobile"), strings.Contains(name, "cell"),
			strings.Contains(name, "gsm"), strings.Contains(name, "handy"):
			rec.AddIdentifier(model.BucketPhone, "", value)
		case secoEmailValue.MatchString(value):
			rec.AddIdentifier(model.BucketEmail, "", value)
		case secoURLValue.MatchString(value):
			rec.AddIdentifier(model.BucketWebsite, "", value)
		case secoPhoneValue.MatchString(value):
			rec.AddIdentifier(model.BucketPhone, "", value)
		default:
			rec.AddIdentifier(model.BucketOther, strings.TrimSpace(attr.Name), value)
		}
	}
}

func secoAppendUnique(dst *[]string, v string) {
	for _, existing := range *dst {
		if existing == v {
			return
		}
	}
	*dst = append(*dst, v)
}
