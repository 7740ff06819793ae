package watchlist

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const unFeedURL = "https://scsanctions.un.org/resources/xml/en/consolidated.xml"

// UN reads the UN Security Council consolidated list, which keeps
// individuals and entities in separate containers with different schemas.
type UN struct{}

func (u *UN) Name() string           { return "un" }
func (u *UN) ListName() model.Source { return model.SourceUN }
func (u *UN) Publisher() string      { return "UN Security Council" }
func (u *UN) FeedURL() string        { return unFeedURL }
func (u *UN) SnapshotFile() string   { return "UN-consolidated.xml" }

type unDocument struct {
	Individuals []unIndividual `xml:"INDIVIDUALS>INDIVIDUAL"`
	Entities    []unEntity     `xml:"ENTITIES>ENTITY"`
}

// unValueList reads both container shapes the feed has used over time:
// text directly inside the element and a list of VALUE children.
type unValueList struct {
	Text   string   `xml:",chardata"`
	Values []string `xml:"VALUE"`
}

func (v *unValueList) values() []string {
	var out []string
	for _, s := range v.Values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	if t := strings.TrimSpace(v.Text); t != "" {
		return []string{t}
	}
	return nil
}

func unFlatten(lists []unValueList) []string {
	var out []string
	for i := range lists {
		out = append(out, lists[i].values()...)
	}
	return out
}

type unIndividual struct {
	DataID     string `xml:"DATAID"`
	FirstName  string `xml:"FIRST_NAME"`
	SecondName string `xml:"SECOND_NAME"`
	ThirdName  string `xml:"THIRD_NAME"`
	FourthName string `xml:"FOURTH_NAME"`
	Gender     string `xml:"GENDER"`
	Comments   string `xml:"COMMENTS1"`
	ListedOn   string `xml:"LISTED_ON"`

	Nationalities []unValueList `xml:"NATIONALITY"`
	Citizenships  []unValueList `xml:"CITIZENSHIP"`
	Designations  []unValueList `xml:"DESIGNATION"`

	DOBs        []unDOB     `xml:"INDIVIDUAL_DATE_OF_BIRTH"`
	POBs        []unPlace   `xml:"INDIVIDUAL_PLACE_OF_BIRTH"`
	Addresses   []unAddress `xml:"INDIVIDUAL_ADDRESS"`
	Aliases     []unAlias   `xml:"INDIVIDUAL_ALIAS"`
	LastUpdated unDate      `xml:"LAST_DAY_UPDATED"`
}

type unEntity struct {
	ReferenceNumber string `xml:"REFERENCE_NUMBER"`
	FirstName       string `xml:"FIRST_NAME"`
	Name            string `xml:"NAME"`
	Comments        string `xml:"COMMENTS1"`
	ListedOn        string `xml:"LISTED_ON"`

	Designations []unValueList `xml:"DESIGNATION"`
	Addresses    []unAddress   `xml:"ENTITY_ADDRESS"`
	Aliases      []unAlias     `xml:"ENTITY_ALIAS"`
	LastUpdated  unDate        `xml:"LAST_DAY_UPDATED"`
}

type unDOB struct {
	TypeOfDate string `xml:"TYPE_OF_DATE"`
	Day        string `xml:"DAY"`
	Month      string `xml:"MONTH"`
	Year       string `xml:"YEAR"`
	Date       string `xml:"DATE"`
}

type unPlace struct {
	City    string `xml:"CITY"`
	State   string `xml:"STATE_PROVINCE"`
	Country string `xml:"COUNTRY"`
	Note    string `xml:"NOTE"`
}

type unAddress struct {
	Street  string `xml:"STREET"`
	City    string `xml:"CITY"`
	State   string `xml:"STATE_PROVINCE"`
	Postal  string `xml:"POSTAL_CODE"`
	Country string `xml:"COUNTRY"`
	Note    string `xml:"NOTE"`
}

type unAlias struct {
	Quality string `xml:"QUALITY"`
	Name    string `xml:"ALIAS_NAME"`
}

type unDate struct {
	Year  string `xml:"YEAR"`
	Month string `xml:"MONTH"`
	Day   string `xml:"DAY"`
}

func (d *unDate) text() string {
	var parts []string
	if y := strings.TrimSpace(d.Year); y != "" {
		parts = append(parts, y)
	}
	if m := strings.TrimSpace(d.Month); m != "" {
		parts = append(parts, zeroPad2(m))
	}
	if dd := strings.TrimSpace(d.Day); dd != "" {
		parts = append(parts, zeroPad2(dd))
	}
	return strings.Join(parts, "-")
}

func zeroPad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func (u *UN) Extract(data []byte) ([]model.RawRecord, error) {
	var doc unDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse un feed")
	}

	records := make([]model.RawRecord, 0, len(doc.Individuals)+len(doc.Entities))
	for i := range doc.Individuals {
		records = append(records, unIndividualRecord(&doc.Individuals[i]))
	}
	for i := range doc.Entities {
		records = append(records, unEntityRecord(&doc.Entities[i]))
	}
	return records, nil
}

func unIndividualRecord(p *unIndividual) model.RawRecord {
	rec := model.RawRecord{
		Source:         model.SourceUN,
		ListID:         strings.TrimSpace(p.DataID),
		Classification: model.ClassIndividual,
		FirstName:      strings.TrimSpace(p.FirstName),
		MiddleName:     strings.TrimSpace(p.ThirdName),
		Sex:            strings.TrimSpace(p.Gender),
	}

	second := strings.TrimSpace(p.SecondName)
	fourth := strings.TrimSpace(p.FourthName)
	rec.FullName = joinClean([]string{p.FirstName, p.SecondName, p.ThirdName, p.FourthName}, " ")
	rec.PrimaryName = rec.FullName
	if second != "" {
		rec.LastName = second
	} else {
		rec.LastName = fourth
	}

	rec.Nationality = strings.Join(unFlatten(p.Nationalities), "; ")
	rec.CitizenshipCountry = strings.Join(unFlatten(p.Citizenships), "; ")

	if len(p.DOBs) > 0 {
		dob := &p.DOBs[0]
		rec.BirthDay = atoiSafe(dob.Day)
		rec.BirthMonth = atoiSafe(dob.Month)
		rec.BirthYear = atoiSafe(dob.Year)
		if rec.BirthYear == 0 {
			rec.BirthDateText = strings.TrimSpace(dob.Date)
		}
	}

	if len(p.POBs) > 0 {
		pob := &p.POBs[0]
		rec.PlaceOfBirth = joinClean([]string{pob.City, pob.State, pob.Country, pob.Note}, ", ")
		if rec.Nationality == "" {
			rec.Nationality = strings.TrimSpace(pob.Country)
		}
	}

	unFillAddresses(&rec, p.Addresses)

	for _, a := range p.Aliases {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Aliases = append(rec.Aliases, name)
		}
	}

	rec.OtherInformation = unOtherInformation(p.Comments, p.Designations)
	rec.PublicationDate = p.LastUpdated.text()
	rec.EnactmentDate = strings.TrimSpace(p.ListedOn)
	rec.EffectiveDate = rec.EnactmentDate

	return rec
}

func unEntityRecord(e *unEntity) model.RawRecord {
	rec := model.RawRecord{
		Source:         model.SourceUN,
		ListID:         strings.TrimSpace(e.ReferenceNumber),
		Classification: model.ClassEntity,
	}

	rec.FullName = strings.TrimSpace(e.FirstName)
	if rec.FullName == "" {
		rec.FullName = strings.TrimSpace(e.Name)
	}
	rec.PrimaryName = rec.FullName

	unFillAddresses(&rec, e.Addresses)

	for _, a := range e.Aliases {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Aliases = append(rec.Aliases, name)
		}
	}

	rec.OtherInformation = unOtherInformation(e.Comments, e.Designations)
	rec.PublicationDate = e.LastUpdated.text()
	rec.EnactmentDate = strings.TrimSpace(e.ListedOn)
	rec.EffectiveDate = rec.EnactmentDate

	return rec
}

func unFillAddresses(rec *model.RawRecord, addrs []unAddress) {
	for i := range addrs {
		a := &addrs[i]
		if rec.PrimaryAddress == "" {
			rec.PrimaryAddress = strings.TrimSpace(a.Street)
		}
		if rec.City == "" {
			rec.City = strings.TrimSpace(a.City)
		}
		if rec.State == "" {
			rec.State = strings.TrimSpace(a.State)
		}
		if rec.PostalCode == "" {
			rec.PostalCode = strings.TrimSpace(a.Postal)
		}
		if rec.Country == "" {
			rec.Country = strings.TrimSpace(a.Country)
		}
		if alt := joinClean([]string{a.Street, a.City, a.State, a.Postal, a.Country, a.Note}, ", "); alt != "" {
			rec.Addresses = append(rec.Addresses, alt)
		}
	}
}

func unOtherInformation(comments string, designations []unValueList) string {
	out := strings.TrimSpace(comments)
	if texts := unFlatten(designations); len(texts) > 0 {
		joined := strings.Join(texts, " ; ")
		if out != "" {
			out = out + " | " + joined
		} else {
			out = joined
		}
	}
	return out
}
