package watchlist

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
	"github.com/halcyonpay/amlscreen/internal/model"
)

const auFeedURL = "https://www.dfat.gov.au/sites/default/files/regulation8_consolidated.xlsx"

// AU reads the DFAT consolidated spreadsheet. Header names drift between
// publications, so every field is resolved through a candidate list. The
// current sheet keys rows by "Reference" with one row per name and a
// "Name Type" column marking akas; rows sharing a reference are merged into
// one record.
type AU struct{}

func (a *AU) Name() string           { return "au" }
func (a *AU) ListName() model.Source { return model.SourceAU }
func (a *AU) Publisher() string      { return "DFAT (Australia)" }
func (a *AU) FeedURL() string        { return auFeedURL }
func (a *AU) SnapshotFile() string   { return "regulation8_consolidated.xlsx" }

var (
	auIDCols             = []string{"Unique ID", "UniqueID", "AU ID", "ID", "List ID", "Reference"}
	auNameCols           = []string{"Name", "Primary Name", "Full Name", "Name of Individual or Entity"}
	auClassificationCols = []string{"Type", "Entity Type", "Individual/Entity", "IndividualEntityShip"}
	auAliasCols          = []string{"Aliases", "Also Known As", "A.K.A.", "AKA", "Alternative Names"}
	auDOBCols            = []string{"Date of Birth", "DOB", "Dates of Birth"}
	auPOBCols            = []string{"Place of Birth", "POB", "Birth Place", "Town of Birth", "City of Birth", "Country of Birth"}
	auNationalityCols    = []string{"Nationality", "Nationalities"}
	auCitizenshipCols    = []string{"Citizenship", "Citizenships"}
	auAddressLineCols    = []string{"Address", "Address Line 1", "Address Line 2", "Address Line 3", "Address Line 4", "Address Line 5", "Address Line 6"}
	auCityCols           = []string{"City", "Town"}
	auStateCols          = []string{"State/Province", "Province/State"}
	auPostalCols         = []string{"Postcode", "Postal Code", "Zip"}
	auCountryCols        = []string{"Country"}
	auProgramCols        = []string{"Regime", "Sanctions Regime", "Program", "Programme", "Regime Name", "Committees"}
	auReasonCols         = []string{"Reason", "Statement of Reasons", "UK Statement of Reasons", "Other Information", "Remarks", "Additional Information"}
	auPublicationCols    = []string{"Last Updated", "Publication Date", "Updated", "Listed Date", "Date Listed", "Date Designated", "Control Date"}
	auEffectiveCols      = []string{"Effective Date", "Start Date", "Date Designated"}
	auEnactmentCols      = []string{"Enactment Date", "Date Designated", "Start Date"}
	auGroupIDCols        = []string{"Group ID", "OFSI Group ID", "GroupID"}
	auUNRefCols          = []string{"UN Reference", "UN Reference Number", "UN Ref", "UNReferenceNumber"}
	auEmailCols          = []string{"Email", "Email Address", "Emails"}
	auPhoneCols          = []string{"Phone", "Telephone", "Phone Number", "Phone Numbers", "Telephone Number"}
	auWebsiteCols        = []string{"Website", "Web", "URL"}
	auPassportCols       = []string{"Passport", "Passport Number", "Passports"}
	auNationalIDCols     = []string{"National ID", "National Identifier", "National Identity Number", "National ID Number"}
	auTaxIDCols          = []string{"Tax ID", "TIN", "Tax Identification Number"}
	auOtherIDCols        = []string{"Other ID", "Other Identifiers"}
	auNameTypeCols       = []string{"Name Type"}
)

// auConsumed is every header any candidate list can claim; the rest of a
// row is folded into other_information as "header: value".
var auConsumed = func() map[string]struct{} {
	out := make(map[string]struct{})
	for _, group := range [][]string{
		auIDCols, auNameCols, auClassificationCols, auAliasCols, auDOBCols, auPOBCols,
		auNationalityCols, auCitizenshipCols, auAddressLineCols, auCityCols, auStateCols,
		auPostalCols, auCountryCols, auProgramCols, auReasonCols, auPublicationCols,
		auEffectiveCols, auEnactmentCols, auGroupIDCols, auUNRefCols, auEmailCols,
		auPhoneCols, auWebsiteCols, auPassportCols, auNationalIDCols, auTaxIDCols,
		auOtherIDCols, auNameTypeCols,
	} {
		for _, k := range group {
			out[k] = struct{}{}
		}
	}
	return out
}()

func (a *AU) Extract(data []byte) ([]model.RawRecord, error) {
	rows, err := fetcher.ParseXLSX(data, fetcher.XLSXOptions{SheetIndex: 0})
	if err != nil {
		return nil, eris.Wrap(err, "watchlist: parse au feed")
	}
	if len(rows) == 0 {
		return nil, eris.New("watchlist: au feed has no header row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	type auRow struct {
		rec      model.RawRecord
		nameType string
	}
	var (
		order  []string
		groups = make(map[string][]auRow)
	)
	for idx, cells := range rows[1:] {
		row := auRowMap(headers, cells)
		if len(row) == 0 {
			continue
		}
		rec := auRecord(idx+1, headers, row)
		if _, ok := groups[rec.ListID]; !ok {
			order = append(order, rec.ListID)
		}
		groups[rec.ListID] = append(groups[rec.ListID], auRow{
			rec:      rec,
			nameType: auFirst(row, auNameTypeCols),
		})
	}

	records := make([]model.RawRecord, 0, len(order))
	for _, id := range order {
		group := groups[id]
		base := 0
		for i, r := range group {
			if r.nameType == "" || strings.EqualFold(r.nameType, "primary name") {
				base = i
				break
			}
		}
		rec := group[base].rec
		for i, r := range group {
			if i == base {
				continue
			}
			if r.rec.FullName != "" {
				rec.Aliases = append(rec.Aliases, r.rec.FullName)
			}
			rec.Aliases = append(rec.Aliases, r.rec.Aliases...)
		}
		records = append(records, rec)
	}
	return records, nil
}

// auRowMap pairs headers with cell values, dropping blanks. A row with no
// surviving cell is skipped by the caller.
func auRowMap(headers []string, cells []string) map[string]string {
	row := make(map[string]string)
	for i, cell := range cells {
		if i >= len(headers) || headers[i] == "" {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			row[headers[i]] = v
		}
	}
	return row
}

func auFirst(row map[string]string, keys []string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

func auRecord(rowNum int, headers []string, row map[string]string) model.RawRecord {
	rec := model.RawRecord{
		Source:             model.SourceAU,
		ListID:             auFirst(row, auIDCols),
		Classification:     model.Classification(auFirst(row, auClassificationCols)),
		FullName:           auFirst(row, auNameCols),
		PlaceOfBirth:       auFirst(row, auPOBCols),
		Nationality:        auFirst(row, auNationalityCols),
		CitizenshipCountry: auFirst(row, auCitizenshipCols),
		SanctionsProgram:   auFirst(row, auProgramCols),
		Justification:      auFirst(row, auReasonCols),
		City:               auFirst(row, auCityCols),
		State:              auFirst(row, auStateCols),
		PostalCode:         auFirst(row, auPostalCols),
		Country:            auFirst(row, auCountryCols),
	}
	if rec.ListID == "" {
		rec.ListID = fmt.Sprintf("AU-%d", rowNum)
	}

	rec.Aliases = SplitAliases(auFirst(row, auAliasCols))

	if dob := auFirst(row, auDOBCols); dob != "" {
		rec.BirthDateText = dob
		if day, month, year, ok := auParseDOB(dob); ok {
			rec.BirthDay, rec.BirthMonth, rec.BirthYear = day, month, year
		}
	}

	var addrParts []string
	for _, k := range auAddressLineCols {
		if v := row[k]; v != "" {
			addrParts = append(addrParts, v)
		}
	}
	addrParts = append(addrParts, nonBlank(rec.City, rec.State, rec.PostalCode, rec.Country)...)
	if len(addrParts) > 0 {
		rec.PrimaryAddress = strings.Join(addrParts, " | ")
		rec.Addresses = append(rec.Addresses, rec.PrimaryAddress)
	}

	rec.PublicationDate = auFirst(row, auPublicationCols)
	rec.EnactmentDate = auFirst(row, auEnactmentCols)
	if rec.EnactmentDate == "" {
		rec.EnactmentDate = rec.PublicationDate
	}
	rec.EffectiveDate = auFirst(row, auEffectiveCols)
	if rec.EffectiveDate == "" {
		rec.EffectiveDate = rec.EnactmentDate
	}

	for _, v := range SplitAliases(auFirst(row, auEmailCols)) {
		rec.AddIdentifier(model.BucketEmail, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auPhoneCols)) {
		rec.AddIdentifier(model.BucketPhone, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auWebsiteCols)) {
		rec.AddIdentifier(model.BucketWebsite, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auPassportCols)) {
		rec.AddIdentifier(model.BucketPassport, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auNationalIDCols)) {
		rec.AddIdentifier(model.BucketNationalID, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auTaxIDCols)) {
		rec.AddIdentifier(model.BucketTaxID, "", v)
	}
	for _, v := range SplitAliases(auFirst(row, auOtherIDCols)) {
		rec.AddIdentifier(model.BucketOther, "Other ID", v)
	}

	var info []string
	if v := auFirst(row, auGroupIDCols); v != "" {
		info = append(info, "GroupID: "+v)
	}
	if v := auFirst(row, auUNRefCols); v != "" {
		info = append(info, "UNReferenceNumber: "+v)
	}
	if v := auFirst(row, auWebsiteCols); v != "" {
		info = append(info, "Website: "+v)
	}
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, consumed := auConsumed[h]; consumed {
			continue
		}
		if v := row[h]; v != "" {
			info = append(info, h+": "+v)
		}
	}
	rec.OtherInformation = strings.Join(info, "; ")

	if rec.Justification == "" && rec.PlaceOfBirth != "" {
		rec.Justification = "Place of birth: " + rec.PlaceOfBirth
	}

	return rec
}

// auParseDOB accepts the day/month/year shapes the sheet uses, normalising
// "\", "-" and "." separators to "/" first. Only a full date with a
// four-digit year is taken structurally; everything else stays text.
func auParseDOB(s string) (day, month, year int, ok bool) {
	t := strings.NewReplacer("\\", "/", "-", "/", ".", "/").Replace(s)
	var parts []string
	for _, p := range strings.Split(t, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) != 3 || len(parts[2]) != 4 {
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
