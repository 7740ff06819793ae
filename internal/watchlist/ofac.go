package watchlist

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const (
	ofacSDNURL  = "https://sanctionslistservice.ofac.treas.gov/api/PublicationPreview/exports/SDN.XML"
	ofacConsURL = "https://sanctionslistservice.ofac.treas.gov/api/PublicationPreview/exports/CONSOLIDATED.XML"
)

// OFAC reads the U.S. Treasury exports. The SDN list and the consolidated
// non-SDN list share one schema, so a single adapter serves both feeds.
type OFAC struct {
	list     model.Source
	url      string
	snapshot string
}

func (o *OFAC) Name() string           { return strings.ToLower(string(o.list)) }
func (o *OFAC) ListName() model.Source { return o.list }
func (o *OFAC) Publisher() string      { return "OFAC (United States)" }
func (o *OFAC) FeedURL() string        { return o.url }
func (o *OFAC) SnapshotFile() string   { return o.snapshot }

type ofacDocument struct {
	PublishInfo struct {
		PublishDate string `xml:"Publish_Date"`
	} `xml:"publshInformation"`
	Entries []ofacEntry `xml:"sdnEntry"`
}

type ofacEntry struct {
	UID        string `xml:"uid"`
	FirstName  string `xml:"firstName"`
	MiddleName string `xml:"middleName"`
	LastName   string `xml:"lastName"`
	SDNType    string `xml:"sdnType"`
	Remarks    string `xml:"remarks"`

	Programs      []string      `xml:"programList>program"`
	AKAs          []ofacAKA     `xml:"akaList>aka"`
	Nationalities []string      `xml:"nationalityList>nationality"`
	Citizenships  []string      `xml:"citizenshipList>citizenship"`
	Genders       []string      `xml:"genderList>gender"`
	DOBs          []ofacDOBItem `xml:"dateOfBirthList>dateOfBirthItem"`
	POBs          []ofacPOBItem `xml:"placeOfBirthList>placeOfBirthItem"`
	Addresses     []ofacAddress `xml:"addressList>address"`
	IDs           []ofacID      `xml:"idList>id"`
}

type ofacAKA struct {
	FirstName  string `xml:"firstName"`
	MiddleName string `xml:"middleName"`
	LastName   string `xml:"lastName"`
}

type ofacDOBItem struct {
	MainEntry string `xml:"mainEntry"`
	Date      string `xml:"dateOfBirth"`
}

type ofacPOBItem struct {
	MainEntry string `xml:"mainEntry"`
	Place     string `xml:"placeOfBirth"`
}

type ofacAddress struct {
	Address1 string `xml:"address1"`
	Address2 string `xml:"address2"`
	Address3 string `xml:"address3"`
	Address4 string `xml:"address4"`
	Address5 string `xml:"address5"`
	Address6 string `xml:"address6"`
	City     string `xml:"city"`
	State    string `xml:"stateOrProvince"`
	Postal   string `xml:"postalCode"`
	Country  string `xml:"country"`
}

func (a *ofacAddress) lines() []string {
	var out []string
	for _, l := range []string{a.Address1, a.Address2, a.Address3, a.Address4, a.Address5, a.Address6} {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

type ofacID struct {
	Type   string `xml:"idType"`
	Number string `xml:"idNumber"`
}

var ofacLinkedTo = regexp.MustCompile(`(?i)\(Linked To:\s*([^)]+)\)`)

// Extract walks every sdnEntry. The publication date is global to the
// document; everything else is per entry.
func (o *OFAC) Extract(data []byte) ([]model.RawRecord, error) {
	var doc ofacDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "watchlist: parse %s feed", o.Name())
	}

	published := strings.TrimSpace(doc.PublishInfo.PublishDate)

	records := make([]model.RawRecord, 0, len(doc.Entries))
	for i := range doc.Entries {
		entry := &doc.Entries[i]

		rec := model.RawRecord{
			Source:           o.list,
			ListID:           strings.TrimSpace(entry.UID),
			Classification:   model.Classification(strings.TrimSpace(entry.SDNType)),
			FirstName:        strings.TrimSpace(entry.FirstName),
			MiddleName:       strings.TrimSpace(entry.MiddleName),
			LastName:         strings.TrimSpace(entry.LastName),
			SanctionsProgram: joinClean(entry.Programs, "; "),
			Justification:    strings.TrimSpace(entry.Remarks),
			Nationality:      joinClean(entry.Nationalities, "; "),
			PublicationDate:  published,
		}
		rec.FullName = joinClean([]string{rec.FirstName, rec.MiddleName, rec.LastName}, " ")

		for _, aka := range entry.AKAs {
			if name := joinClean([]string{aka.FirstName, aka.MiddleName, aka.LastName}, " "); name != "" {
				rec.Aliases = append(rec.Aliases, name)
			}
		}

		if cit := joinClean(entry.Citizenships, "; "); cit != "" {
			rec.CitizenshipCountry = cit
		}
		if len(entry.Genders) > 0 {
			rec.Sex = strings.TrimSpace(entry.Genders[0])
		}

		rec.PlaceOfBirth = ofacMainPOB(entry.POBs)
		rec.BirthDateText = ofacMainDOB(entry.DOBs)

		for idx, addr := range entry.Addresses {
			lines := addr.lines()
			if idx == 0 {
				if len(lines) > 0 {
					rec.PrimaryAddress = lines[0]
				}
				rec.City = strings.TrimSpace(addr.City)
				rec.State = strings.TrimSpace(addr.State)
				rec.PostalCode = strings.TrimSpace(addr.Postal)
				rec.Country = strings.TrimSpace(addr.Country)
			}
			alt := joinClean([]string{
				strings.Join(lines, " | "), addr.City, addr.State, addr.Postal, addr.Country,
			}, ", ")
			if alt != "" {
				rec.Addresses = append(rec.Addresses, alt)
			}
		}

		for _, id := range entry.IDs {
			bucket, label := ofacBucket(id.Type, id.Number)
			rec.AddIdentifier(bucket, label, strings.TrimSpace(id.Number))
		}

		if m := ofacLinkedTo.FindStringSubmatch(rec.Justification); m != nil {
			rec.OtherInformation = "Linked To: " + strings.TrimSpace(m[1])
		}

		records = append(records, rec)
	}

	return records, nil
}

func ofacMainPOB(items []ofacPOBItem) string {
	for _, p := range items {
		if strings.EqualFold(strings.TrimSpace(p.MainEntry), "true") {
			return strings.TrimSpace(p.Place)
		}
	}
	if len(items) > 0 {
		return strings.TrimSpace(items[0].Place)
	}
	return ""
}

func ofacMainDOB(items []ofacDOBItem) string {
	for _, d := range items {
		if strings.EqualFold(strings.TrimSpace(d.MainEntry), "true") {
			return strings.TrimSpace(d.Date)
		}
	}
	if len(items) > 0 {
		return strings.TrimSpace(items[0].Date)
	}
	return ""
}

// ofacBucket classifies an id by its flattened type label. The feed uses
// dozens of free-text labels ("Passport", "SWIFT/BIC", "Tax ID No.",
// "Secondary sanctions risk:"); the heuristics mirror how the labels are
// actually spelt.
func ofacBucket(idType, value string) (model.IdentifierBucket, string) {
	t := strings.TrimSpace(idType)
	v := strings.TrimSpace(value)
	flat := flattenLabel(t)

	switch {
	case strings.Contains(flat, "email") && strings.Contains(v, "@"):
		return model.BucketEmail, t
	case flat == "website" || flat == "web" || flat == "webaddress" || flat == "url" ||
		strings.Contains(strings.ToLower(v), "http"):
		return model.BucketWebsite, t
	case strings.Contains(flat, "telephone") || strings.Contains(flat, "phone"):
		return model.BucketPhone, t
	case strings.Contains(flat, "fax"):
		return model.BucketFax, t
	case strings.Contains(flat, "swift") || strings.Contains(flat, "bic"):
		return model.BucketBIC, t
	case strings.Contains(flat, "iban"):
		return model.BucketIBAN, t
	case strings.HasPrefix(flat, "ssn"):
		return model.BucketSSN, t
	case strings.Contains(flat, "passport"):
		return model.BucketPassport, t
	case strings.Contains(flat, "nationalid"), strings.Contains(flat, "nationalidentification"):
		return model.BucketNationalID, t
	case strings.HasPrefix(flat, "taxid") || strings.Contains(flat, "tax"):
		return model.BucketTaxID, t
	case strings.Contains(flat, "equityticker") || strings.Contains(flat, "ticker"):
		return model.BucketEquityTicker, t
	case flat == "isin":
		return model.BucketISIN, t
	default:
		// Executive orders, CMIC flags, secondary-sanctions notes and the
		// rest keep their original label.
		return model.BucketOther, t
	}
}

// flattenLabel lowercases a label and strips dots, spaces and colons, so
// "Tax ID No." and "tax id no" compare equal.
func flattenLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case '.', ' ', ':', '\t':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
