package watchlist

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const caFeedURL = "https://www.international.gc.ca/world-monde/assets/office_docs/international_relations-relations_internationales/sanctions/sema-lmes.xml"

// CA reads the Canadian SEMA consolidated list. Records are keyed by the
// schedule item number; ships share the schema with people, so the date
// field doubles as a build date and the country doubles as a flag state.
type CA struct{}

func (c *CA) Name() string           { return "ca" }
func (c *CA) ListName() model.Source { return model.SourceCA }
func (c *CA) Publisher() string      { return "Global Affairs Canada" }
func (c *CA) FeedURL() string        { return caFeedURL }
func (c *CA) SnapshotFile() string   { return "sema-lmes.xml" }

type caDocument struct {
	Records []caEntry `xml:"record"`
}

type caEntry struct {
	Country        string `xml:"Country"`
	LastName       string `xml:"LastName"`
	GivenName      string `xml:"GivenName"`
	EntityOrShip   string `xml:"EntityOrShip"`
	DOBOrBuildDate string `xml:"DateOfBirthOrShipBuildDate"`
	Schedule       string `xml:"Schedule"`
	Item           string `xml:"Item"`
	DateOfListing  string `xml:"DateOfListing"`
	Aliases        string `xml:"Aliases"`
	TitleOrShip    string `xml:"TitleOrShip"`
	ShipIMONumber  string `xml:"ShipIMONumber"`

	// The place-of-birth tag has been renamed across publications.
	PlaceOfBirth         string `xml:"PlaceOfBirth"`
	PlaceOfBirthText     string `xml:"PlaceOfBirthText"`
	BirthPlace           string `xml:"BirthPlace"`
	PlaceOfBirthOrOrigin string `xml:"PlaceOfBirthOrOrigin"`
}

func (e *caEntry) placeOfBirth() string {
	for _, v := range []string{e.PlaceOfBirth, e.PlaceOfBirthText, e.BirthPlace, e.PlaceOfBirthOrOrigin} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var (
	caFullDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	caYearOnly = regexp.MustCompile(`^\d{4}$`)
	caAliasSep = regexp.MustCompile(`\s*[;|]\s*`)
)

func (c *CA) Extract(data []byte) ([]model.RawRecord, error) {
	var doc caDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse ca feed")
	}

	records := make([]model.RawRecord, 0, len(doc.Records))
	for i := range doc.Records {
		records = append(records, caRecord(&doc.Records[i]))
	}
	return records, nil
}

func caRecord(e *caEntry) model.RawRecord {
	rec := model.RawRecord{
		Source:    model.SourceCA,
		ListID:    strings.TrimSpace(e.Item),
		FirstName: strings.TrimSpace(e.GivenName),
		LastName:  strings.TrimSpace(e.LastName),
		Country:   strings.TrimSpace(e.Country),
	}
	rec.FullName = joinClean([]string{rec.FirstName, rec.LastName}, " ")
	rec.Classification = model.Classification(strings.TrimSpace(e.EntityOrShip))
	rec.PlaceOfBirth = e.placeOfBirth()

	if dob := strings.TrimSpace(e.DOBOrBuildDate); dob != "" {
		switch {
		case caFullDate.MatchString(dob):
			rec.BirthYear = atoiSafe(dob[0:4])
			rec.BirthMonth = atoiSafe(dob[5:7])
			rec.BirthDay = atoiSafe(dob[8:10])
		case caYearOnly.MatchString(dob):
			rec.BirthYear = atoiSafe(dob)
		}
	}

	if aliases := strings.TrimSpace(e.Aliases); aliases != "" {
		if strings.ContainsAny(aliases, ";|") {
			for _, a := range caAliasSep.Split(aliases, -1) {
				if a = strings.TrimSpace(a); a != "" {
					rec.Aliases = append(rec.Aliases, a)
				}
			}
		} else {
			rec.Aliases = []string{aliases}
		}
	}

	var info []string
	if pob := rec.PlaceOfBirth; pob != "" {
		info = append(info, "Place of birth: "+pob)
	}
	if v := strings.TrimSpace(e.Schedule); v != "" {
		info = append(info, "Schedule: "+v)
	}
	if v := strings.TrimSpace(e.TitleOrShip); v != "" {
		info = append(info, "TitleOrShip: "+v)
	}
	if v := strings.TrimSpace(e.EntityOrShip); v != "" {
		info = append(info, "EntityOrShip: "+v)
	}
	rec.OtherInformation = strings.Join(info, "; ")

	if rec.Country != "" {
		rec.SanctionsProgram = "SEMA-" + rec.Country
	}
	if imo := strings.TrimSpace(e.ShipIMONumber); imo != "" {
		rec.AddIdentifier(model.BucketOther, "Ship IMO Number", imo)
	}

	listed := strings.TrimSpace(e.DateOfListing)
	rec.PublicationDate = listed
	rec.EnactmentDate = listed
	rec.EffectiveDate = listed

	return rec
}
