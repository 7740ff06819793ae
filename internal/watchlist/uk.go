package watchlist

import (
	"encoding/xml"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const ukFeedURL = "https://sanctionslist.fcdo.gov.uk/docs/UK-Sanctions-List.xml"

// UK reads the consolidated UK Sanctions List published by the FCDO and
// enforced by OFSI.
type UK struct{}

func (u *UK) Name() string           { return "uk" }
func (u *UK) ListName() model.Source { return model.SourceUK }
func (u *UK) Publisher() string      { return "OFSI (United Kingdom)" }
func (u *UK) FeedURL() string        { return ukFeedURL }
func (u *UK) SnapshotFile() string   { return "UK-Sanctions-List.xml" }

type ukDocument struct {
	Designations []ukDesignation `xml:"Designation"`
}

type ukDesignation struct {
	UniqueID             string `xml:"UniqueID"`
	LastUpdated          string `xml:"LastUpdated"`
	DateDesignated       string `xml:"DateDesignated"`
	OFSIGroupID          string `xml:"OFSIGroupID"`
	UNReferenceNumber    string `xml:"UNReferenceNumber"`
	RegimeName           string `xml:"RegimeName"`
	IndividualEntityShip string `xml:"IndividualEntityShip"`
	DesignationSource    string `xml:"DesignationSource"`
	SanctionsImposed     string `xml:"SanctionsImposed"`
	OtherInformation     string `xml:"OtherInformation"`
	StatementOfReasons   string `xml:"UKStatementofReasons"`

	Indicators    ukIndicators `xml:"SanctionsImposedIndicators"`
	Names         []ukName     `xml:"Names>Name"`
	NonLatinNames []string     `xml:"NonLatinNames>NonLatinName>NameNonLatinScript"`
	Addresses     []ukAddress  `xml:"Addresses>Address"`
	PhoneNumbers  []string     `xml:"PhoneNumbers>PhoneNumber"`
	Emails        []string     `xml:"EmailAddresses>EmailAddress"`
	Individual    ukIndividual `xml:"IndividualDetails>Individual"`
}

// ukIndicators captures the boolean flag children whatever they are called
// (AssetFreeze, TravelBan, TrustServicesSanctions, ...).
type ukIndicators struct {
	Flags []ukFlag `xml:",any"`
}

type ukFlag struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type ukName struct {
	NameType string `xml:"NameType"`
	Name1    string `xml:"Name1"`
	Name2    string `xml:"Name2"`
	Name3    string `xml:"Name3"`
	Name4    string `xml:"Name4"`
	Name5    string `xml:"Name5"`
	Name6    string `xml:"Name6"`
}

func (n *ukName) parts() []string {
	var out []string
	for _, p := range []string{n.Name1, n.Name2, n.Name3, n.Name4, n.Name5, n.Name6} {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (n *ukName) assembled() string { return strings.Join(n.parts(), " ") }

type ukAddress struct {
	Line1      string `xml:"AddressLine1"`
	Line2      string `xml:"AddressLine2"`
	Line3      string `xml:"AddressLine3"`
	Line4      string `xml:"AddressLine4"`
	Line5      string `xml:"AddressLine5"`
	Line6      string `xml:"AddressLine6"`
	PostalCode string `xml:"AddressPostalCode"`
	Country    string `xml:"AddressCountry"`
}

type ukIndividual struct {
	DOBs           []string `xml:"DOBs>DOB"`
	Genders        []string `xml:"Genders>Gender"`
	TownOfBirth    string   `xml:"BirthDetails>Location>TownOfBirth"`
	CountryOfBirth string   `xml:"BirthDetails>Location>CountryOfBirth"`
	Positions      []string `xml:"Positions>Position"`
}

func (u *UK) Extract(data []byte) ([]model.RawRecord, error) {
	var doc ukDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse uk feed")
	}

	records := make([]model.RawRecord, 0, len(doc.Designations))
	for i := range doc.Designations {
		records = append(records, ukRecord(&doc.Designations[i]))
	}
	return records, nil
}

func ukRecord(d *ukDesignation) model.RawRecord {
	rec := model.RawRecord{
		Source:           model.SourceUK,
		ListID:           strings.TrimSpace(d.UniqueID),
		Classification:   model.Classification(strings.TrimSpace(d.IndividualEntityShip)),
		SanctionsProgram: strings.TrimSpace(d.RegimeName),
		Justification:    strings.TrimSpace(d.StatementOfReasons),
		PublicationDate:  strings.TrimSpace(d.LastUpdated),
		EnactmentDate:    strings.TrimSpace(d.DateDesignated),
		EffectiveDate:    strings.TrimSpace(d.DateDesignated),
	}

	primary := ukPrimaryName(d.Names)
	if primary != nil {
		rec.FullName = primary.assembled()
		rec.PrimaryName = rec.FullName
	}
	for i := range d.Names {
		n := &d.Names[i]
		if n == primary {
			continue
		}
		if a := n.assembled(); a != "" {
			rec.Aliases = append(rec.Aliases, a)
		}
	}
	for _, nl := range d.NonLatinNames {
		if nl = strings.TrimSpace(nl); nl != "" {
			rec.Aliases = append(rec.Aliases, nl)
		}
	}

	if primary != nil && strings.EqualFold(strings.TrimSpace(d.IndividualEntityShip), "individual") {
		rec.FirstName = strings.TrimSpace(primary.Name1)
		rec.MiddleName = joinClean([]string{primary.Name2, primary.Name3, primary.Name4, primary.Name5}, " ")
		rec.LastName = strings.TrimSpace(primary.Name6)
	}
	if rec.FullName != "" && rec.FirstName == "" {
		rec.FirstName, rec.MiddleName, rec.LastName = splitNameTokens(rec.FullName)
	}

	for idx := range d.Addresses {
		a := &d.Addresses[idx]
		assembled := joinClean([]string{
			a.Line1, a.Line2, a.Line3, a.Line4, a.Line5, a.Line6, a.PostalCode, a.Country,
		}, " | ")
		if assembled != "" {
			rec.Addresses = append(rec.Addresses, assembled)
			if rec.PrimaryAddress == "" {
				rec.PrimaryAddress = assembled
			}
		}
		// The feed has no dedicated city/state elements; by convention
		// line 5 carries the town and line 6 the region.
		if rec.City == "" {
			rec.City = strings.TrimSpace(a.Line5)
		}
		if rec.State == "" {
			rec.State = strings.TrimSpace(a.Line6)
		}
		if rec.PostalCode == "" {
			rec.PostalCode = strings.TrimSpace(a.PostalCode)
		}
		if rec.Country == "" {
			rec.Country = strings.TrimSpace(a.Country)
		}
	}

	for _, p := range d.PhoneNumbers {
		rec.AddIdentifier(model.BucketPhone, "", strings.TrimSpace(p))
	}
	for _, e := range d.Emails {
		rec.AddIdentifier(model.BucketEmail, "", strings.TrimSpace(e))
	}

	if dob := firstNonBlank(d.Individual.DOBs); dob != "" {
		rec.BirthDateText = dob
		if day, month, year, ok := parseSlashDate(dob); ok {
			rec.BirthDay, rec.BirthMonth, rec.BirthYear = day, month, year
		}
	}
	rec.Sex = firstNonBlank(d.Individual.Genders)
	rec.PlaceOfBirth = joinClean([]string{d.Individual.TownOfBirth, d.Individual.CountryOfBirth}, ", ")

	rec.OtherInformation = ukOtherInformation(d)

	return rec
}

// ukPrimaryName picks the designation's display name: the first node typed
// "Primary Name" that has any name part, else the first node with parts,
// else the first node.
func ukPrimaryName(names []ukName) *ukName {
	for i := range names {
		if strings.EqualFold(strings.TrimSpace(names[i].NameType), "primary name") && len(names[i].parts()) > 0 {
			return &names[i]
		}
	}
	for i := range names {
		if len(names[i].parts()) > 0 {
			return &names[i]
		}
	}
	if len(names) > 0 {
		return &names[0]
	}
	return nil
}

func ukOtherInformation(d *ukDesignation) string {
	var parts []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("OFSIGroupID", d.OFSIGroupID)
	add("UNReferenceNumber", d.UNReferenceNumber)
	add("DesignationSource", d.DesignationSource)
	add("SubjectType", d.IndividualEntityShip)
	add("SanctionsImposed", d.SanctionsImposed)

	var flags []string
	for _, f := range d.Indicators.Flags {
		if strings.EqualFold(strings.TrimSpace(f.Value), "true") {
			flags = append(flags, splitCamelTitle(f.XMLName.Local))
		}
	}
	if len(flags) > 0 {
		parts = append(parts, "SanctionsIndicators: "+strings.Join(flags, "|"))
	}

	if v := strings.TrimSpace(d.OtherInformation); v != "" {
		parts = append(parts, v)
	}
	if pos := joinClean(d.Individual.Positions, " | "); pos != "" {
		parts = append(parts, "Positions: "+pos)
	}
	return strings.Join(parts, "; ")
}

var titleCaser = cases.Title(language.English)

// splitCamelTitle turns an indicator tag like "TrustServicesSanctions" into
// "Trust Services Sanctions".
func splitCamelTitle(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(strings.ToLower(strings.TrimSpace(b.String())))
}

// splitNameTokens derives first/middle/last from a display name when the
// feed gave no structured parts.
func splitNameTokens(full string) (first, middle, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
	case 1:
		first = tokens[0]
	case 2:
		first, last = tokens[0], tokens[1]
	default:
		first, last = tokens[0], tokens[len(tokens)-1]
		middle = strings.Join(tokens[1:len(tokens)-1], " ")
	}
	return first, middle, last
}

// parseSlashDate parses the DD/MM/YYYY dates of birth the feed publishes.
func parseSlashDate(s string) (day, month, year int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	day = atoiSafe(parts[0])
	month = atoiSafe(parts[1])
	year = atoiSafe(parts[2])
	if day == 0 || month == 0 || year == 0 {
		return 0, 0, 0, false
	}
	return day, month, year, true
}

func firstNonBlank(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
