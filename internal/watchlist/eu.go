package watchlist

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const euFeedURL = "https://webgate.ec.europa.eu/fsd/fsf/public/files/xmlFullSanctionsList_1_1/content?token=n009sfr8"

// EU reads the EU consolidated financial sanctions file (FSF). Every datum
// lives in attributes; names, dates and addresses repeat per regulation
// language, so the walk keeps first-wins and last-wins rules per field the
// way the feed is actually published.
type EU struct{}

func (e *EU) Name() string           { return "eu" }
func (e *EU) ListName() model.Source { return model.SourceEU }
func (e *EU) Publisher() string      { return "European Commission" }
func (e *EU) FeedURL() string        { return euFeedURL }
func (e *EU) SnapshotFile() string   { return "EU-FSF.xml" }

type euDocument struct {
	Entities []euEntity `xml:"sanctionEntity"`
}

type euEntity struct {
	LogicalID         string `xml:"logicalId,attr"`
	EUReferenceNumber string `xml:"euReferenceNumber,attr"`

	Remarks         []string           `xml:"remark"`
	Regulations     []euRegulation     `xml:"regulation"`
	SubjectType     euSubjectType      `xml:"subjectType"`
	NameAliases     []euNameAlias      `xml:"nameAlias"`
	Citizenships    []euCitizenship    `xml:"citizenship"`
	Birthdates      []euBirthdate      `xml:"birthdate"`
	Addresses       []euAddress        `xml:"address"`
	Identifications []euIdentification `xml:"identification"`
	ContactInfo     euContactInfo      `xml:"contactInfo"`
}

type euSubjectType struct {
	Code               string `xml:"code,attr"`
	ClassificationCode string `xml:"classificationCode,attr"`
}

type euRegulation struct {
	RegulationType     string `xml:"regulationType,attr"`
	OrganisationType   string `xml:"organisationType,attr"`
	PublicationDate    string `xml:"publicationDate,attr"`
	EntryIntoForceDate string `xml:"entryIntoForceDate,attr"`
	NumberTitle        string `xml:"numberTitle,attr"`
	Programme          string `xml:"programme,attr"`
	LogicalID          string `xml:"logicalId,attr"`
	PublicationURL     string `xml:"publicationUrl"`
}

type euRegulationSummary struct {
	PublicationDate string `xml:"publicationDate,attr"`
	NumberTitle     string `xml:"numberTitle,attr"`
	PublicationURL  string `xml:"publicationUrl,attr"`
}

type euNameAlias struct {
	Gender             string              `xml:"gender,attr"`
	NameLanguage       string              `xml:"nameLanguage,attr"`
	RegulationLanguage string              `xml:"regulationLanguage,attr"`
	Strong             string              `xml:"strong,attr"`
	Title              string              `xml:"title,attr"`
	Function           string              `xml:"function,attr"`
	FirstName          string              `xml:"firstName,attr"`
	MiddleName         string              `xml:"middleName,attr"`
	LastName           string              `xml:"lastName,attr"`
	WholeName          string              `xml:"wholeName,attr"`
	RegulationSummary  euRegulationSummary `xml:"regulationSummary"`
}

func (n *euNameAlias) assembled() string {
	if w := strings.TrimSpace(n.WholeName); w != "" {
		return w
	}
	return joinClean([]string{n.FirstName, n.MiddleName, n.LastName}, " ")
}

func (n *euNameAlias) isStrong() bool {
	switch strings.ToLower(strings.TrimSpace(n.Strong)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

type euCitizenship struct {
	CountryISO2        string              `xml:"countryIso2Code,attr"`
	CountryDescription string              `xml:"countryDescription,attr"`
	Region             string              `xml:"region,attr"`
	RegulationSummary  euRegulationSummary `xml:"regulationSummary"`
}

type euBirthdate struct {
	Circa              string              `xml:"circa,attr"`
	CalendarType       string              `xml:"calendarType,attr"`
	City               string              `xml:"city,attr"`
	Region             string              `xml:"region,attr"`
	Place              string              `xml:"place,attr"`
	ZipCode            string              `xml:"zipCode,attr"`
	CountryISO2        string              `xml:"countryIso2Code,attr"`
	CountryDescription string              `xml:"countryDescription,attr"`
	Birthdate          string              `xml:"birthdate,attr"`
	DayOfMonth         string              `xml:"dayOfMonth,attr"`
	MonthOfYear        string              `xml:"monthOfYear,attr"`
	Year               string              `xml:"year,attr"`
	RegulationSummary  euRegulationSummary `xml:"regulationSummary"`
}

type euAddress struct {
	City               string `xml:"city,attr"`
	Street             string `xml:"street,attr"`
	POBox              string `xml:"poBox,attr"`
	ZipCode            string `xml:"zipCode,attr"`
	Region             string `xml:"region,attr"`
	Place              string `xml:"place,attr"`
	CountryISO2        string `xml:"countryIso2Code,attr"`
	CountryDescription string `xml:"countryDescription,attr"`
}

// euIdentification accepts both document shapes the feed has used: the
// current attribute form and the older nested documentation children.
type euIdentification struct {
	Number        string               `xml:"number,attr"`
	TypeCode      string               `xml:"identificationTypeCode,attr"`
	Documentation []euIdentityDocument `xml:"documentation"`
}

type euIdentityDocument struct {
	Type               string `xml:"type,attr"`
	Number             string `xml:"number,attr"`
	CountryISO2        string `xml:"countryIso2Code,attr"`
	CountryDescription string `xml:"countryDescription,attr"`
	Comment            string `xml:"comment,attr"`
}

type euContactInfo struct {
	Emails   []string `xml:"email"`
	Websites []string `xml:"website"`
	Phones   []string `xml:"phone"`
}

func (e *EU) Extract(data []byte) ([]model.RawRecord, error) {
	var doc euDocument
	if err := decodeXML(data, &doc); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse eu feed")
	}

	records := make([]model.RawRecord, 0, len(doc.Entities))
	for i := range doc.Entities {
		records = append(records, euRecord(&doc.Entities[i]))
	}
	return records, nil
}

func euRecord(ent *euEntity) model.RawRecord {
	rec := model.RawRecord{
		Source: model.SourceEU,
		ListID: strings.TrimSpace(ent.LogicalID),
	}
	var info []string
	addInfo := func(parts ...string) {
		if joined := joinClean(parts, "; "); joined != "" {
			info = append(info, joined)
		}
	}
	label := func(key, v string) string {
		if v = strings.TrimSpace(v); v != "" {
			return key + "=" + v
		}
		return ""
	}

	for _, remark := range ent.Remarks {
		if remark = strings.TrimSpace(remark); remark == "" {
			continue
		}
		if rec.Justification == "" {
			rec.Justification = remark
		} else {
			info = append(info, remark)
		}
	}

	for i := range ent.Regulations {
		reg := &ent.Regulations[i]
		if p := strings.TrimSpace(reg.Programme); p != "" {
			rec.SanctionsProgram = p
		}
		if d := strings.TrimSpace(reg.PublicationDate); d != "" {
			rec.PublicationDate = d
		}
		if d := strings.TrimSpace(reg.EntryIntoForceDate); d != "" {
			rec.EnactmentDate = d
			if rec.EffectiveDate == "" {
				rec.EffectiveDate = d
			}
		}
		addInfo(
			label("regulationType", reg.RegulationType),
			label("organisationType", reg.OrganisationType),
			label("numberTitle", reg.NumberTitle),
			label("regulationId", reg.LogicalID),
			label("publicationUrl", reg.PublicationURL),
		)
	}

	rec.Classification = model.Classification(strings.TrimSpace(ent.SubjectType.Code))
	addInfo(label("subjectType", ent.SubjectType.Code))
	addInfo(label("classificationCode", ent.SubjectType.ClassificationCode))

	for i := range ent.NameAliases {
		alias := &ent.NameAliases[i]
		if g := strings.TrimSpace(alias.Gender); g != "" {
			rec.Sex = g
		}
		if name := alias.assembled(); name != "" {
			if rec.PrimaryName == "" && alias.isStrong() {
				rec.PrimaryName = name
			}
			rec.Aliases = append(rec.Aliases, name)
		}
		if rec.FirstName == "" {
			rec.FirstName = strings.TrimSpace(alias.FirstName)
		}
		if rec.MiddleName == "" {
			rec.MiddleName = strings.TrimSpace(alias.MiddleName)
		}
		if rec.LastName == "" {
			rec.LastName = strings.TrimSpace(alias.LastName)
		}
		if d := strings.TrimSpace(alias.RegulationSummary.PublicationDate); d != "" && rec.PublicationDate == "" {
			rec.PublicationDate = d
		}
		addInfo(
			label("nameAliasReg", alias.RegulationSummary.NumberTitle),
			label("nameAliasUrl", alias.RegulationSummary.PublicationURL),
			label("nameAliasRegLang", alias.RegulationLanguage),
			label("title", alias.Title),
			label("function", alias.Function),
		)
	}

	for i := range ent.Citizenships {
		cit := &ent.Citizenships[i]
		if d := strings.TrimSpace(cit.CountryDescription); d != "" {
			if rec.CitizenshipCountry == "" {
				rec.CitizenshipCountry = d
			}
			if rec.Nationality == "" {
				rec.Nationality = d
			}
		}
		if iso := strings.TrimSpace(cit.CountryISO2); iso != "" && rec.CitizenshipCountryISO == "" {
			rec.CitizenshipCountryISO = iso
		}
		addInfo(label("citizenshipRegion", cit.Region))
		addInfo(
			label("citizenshipPubDate", cit.RegulationSummary.PublicationDate),
			label("citizenshipReg", cit.RegulationSummary.NumberTitle),
			label("citizenshipUrl", cit.RegulationSummary.PublicationURL),
		)
	}

	for i := range ent.Birthdates {
		bd := &ent.Birthdates[i]
		if y := strings.TrimSpace(bd.Year); y != "" && rec.BirthYear == 0 {
			rec.BirthYear = atoiSafe(y)
		}
		if m := strings.TrimSpace(bd.MonthOfYear); m != "" && rec.BirthMonth == 0 {
			rec.BirthMonth = atoiSafe(m)
		}
		if d := strings.TrimSpace(bd.DayOfMonth); d != "" && rec.BirthDay == 0 {
			rec.BirthDay = atoiSafe(d)
		}
		if iso := strings.TrimSpace(bd.Birthdate); iso != "" && rec.BirthYear == 0 {
			rec.BirthYear, rec.BirthMonth, rec.BirthDay = parseDateText(iso)
		}
		// Birth place doubles as an address fallback when the entity
		// carries no address of its own.
		if p := strings.TrimSpace(bd.Place); p != "" && rec.State == "" {
			rec.State = p
		}
		if z := strings.TrimSpace(bd.ZipCode); z != "" && rec.PostalCode == "" {
			rec.PostalCode = z
		}
		if c := strings.TrimSpace(bd.CountryDescription); c != "" && rec.Country == "" {
			rec.Country = c
		}
		if iso := strings.TrimSpace(bd.CountryISO2); iso != "" && rec.CountryISO == "" {
			rec.CountryISO = iso
		}
		if rec.PlaceOfBirth == "" {
			rec.PlaceOfBirth = joinClean([]string{bd.City, bd.Region, bd.Place, bd.CountryDescription}, ", ")
		}
		addInfo(label("circa", bd.Circa), label("calendarType", bd.CalendarType))
		addInfo(
			label("birthPubDate", bd.RegulationSummary.PublicationDate),
			label("birthReg", bd.RegulationSummary.NumberTitle),
			label("birthUrl", bd.RegulationSummary.PublicationURL),
		)
	}

	for i := range ent.Addresses {
		a := &ent.Addresses[i]
		if c := strings.TrimSpace(a.City); c != "" {
			rec.City = c
		}
		if z := strings.TrimSpace(a.ZipCode); z != "" {
			rec.PostalCode = z
		}
		if p := strings.TrimSpace(a.Place); p != "" && rec.State == "" {
			rec.State = p
		}
		if c := strings.TrimSpace(a.CountryDescription); c != "" && rec.Country == "" {
			rec.Country = c
		}
		if iso := strings.TrimSpace(a.CountryISO2); iso != "" && rec.CountryISO == "" {
			rec.CountryISO = iso
		}
		street := strings.TrimSpace(a.Street)
		if street == "" {
			if pb := strings.TrimSpace(a.POBox); pb != "" {
				street = "PO Box " + pb
			}
		}
		full := joinClean([]string{street, a.City, a.Region, a.Place, a.ZipCode, a.CountryDescription}, ", ")
		if full != "" {
			if rec.PrimaryAddress == "" {
				rec.PrimaryAddress = full
			}
			rec.Addresses = append(rec.Addresses, full)
		}
	}

	for i := range ent.Identifications {
		id := &ent.Identifications[i]
		if len(id.Documentation) == 0 {
			euIdentityInto(&rec, id.TypeCode, id.Number, "", "", "", addInfo, label)
			continue
		}
		for _, d := range id.Documentation {
			euIdentityInto(&rec, d.Type, d.Number, d.CountryDescription, d.CountryISO2, d.Comment, addInfo, label)
		}
	}

	for _, v := range ent.ContactInfo.Emails {
		rec.AddIdentifier(model.BucketEmail, "", strings.TrimSpace(v))
	}
	for _, v := range ent.ContactInfo.Websites {
		rec.AddIdentifier(model.BucketWebsite, "", strings.TrimSpace(v))
	}
	for _, v := range ent.ContactInfo.Phones {
		rec.AddIdentifier(model.BucketPhone, "", strings.TrimSpace(v))
	}

	if rec.PrimaryName != "" {
		rec.FullName = rec.PrimaryName
	} else {
		rec.FullName = joinClean([]string{rec.FirstName, rec.MiddleName, rec.LastName}, " ")
	}

	rec.OtherInformation = strings.Join(info, "; ")
	return rec
}

func euIdentityInto(rec *model.RawRecord, docType, number, country, iso, comment string,
	addInfo func(...string), label func(string, string) string) {
	docType = strings.TrimSpace(docType)
	number = strings.TrimSpace(number)
	if docType == "" && number == "" {
		return
	}
	assembled := joinClean([]string{
		label("type", docType),
		label("number", number),
		label("country", country),
		label("iso2", iso),
		label("note", comment),
	}, "; ")
	if assembled != "" {
		addInfo("document: " + assembled)
	}
	if number == "" {
		return
	}
	switch strings.ToLower(docType) {
	case "passport":
		rec.AddIdentifier(model.BucketPassport, docType, number)
	case "national id", "national identification", "id card":
		rec.AddIdentifier(model.BucketNationalID, docType, number)
	}
}
