package model

// RawRecord is the union of the fields the eight source adapters emit,
// before normalisation. Adapters populate only what their feed carries;
// everything here is optional except Source and ListID — records without a
// ListID are dropped and counted by the normaliser.
type RawRecord struct {
	Source Source `json:"source"`
	ListID string `json:"list_id"`

	// Classification as stated by the source, if any. The normaliser infers
	// a value when this is empty.
	Classification Classification `json:"classification,omitempty"`

	PrimaryName    string `json:"primary_name,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	MiddleName     string `json:"middle_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	OtherFirstName string `json:"other_first_name,omitempty"`

	// Aliases collected as discrete strings, plus any still-delimited text
	// the source supplied (split by the normaliser: ";" then "|" then ",").
	Aliases     []string `json:"aliases,omitempty"`
	AliasesText string   `json:"aliases_text,omitempty"`

	// Date of birth, either structured or as source text the adapter could
	// not fully resolve. Partial dates keep unknown components zero.
	BirthYear     int    `json:"birth_year,omitempty"`
	BirthMonth    int    `json:"birth_month,omitempty"`
	BirthDay      int    `json:"birth_day,omitempty"`
	BirthDateText string `json:"birth_date_text,omitempty"`

	PlaceOfBirth          string `json:"place_of_birth,omitempty"`
	Sex                   string `json:"sex,omitempty"`
	Nationality           string `json:"nationality,omitempty"`
	CitizenshipCountry    string `json:"citizenship_country,omitempty"`
	CitizenshipCountryISO string `json:"citizenship_country_iso,omitempty"`

	// Primary structured address. PrimaryAddress holds the composed display
	// string for line-based sources; the normaliser composes it from the
	// structured parts otherwise.
	Street         string   `json:"street,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	PostalCode     string   `json:"postal_code,omitempty"`
	Country        string   `json:"country,omitempty"`
	CountryISO     string   `json:"country_iso,omitempty"`
	PrimaryAddress string   `json:"primary_address,omitempty"`
	Addresses      []string `json:"addresses,omitempty"`

	BICs              []string    `json:"bics,omitempty"`
	IBANs             []string    `json:"ibans,omitempty"`
	PassportNumbers   []string    `json:"passport_numbers,omitempty"`
	NationalIDNumbers []string    `json:"national_id_numbers,omitempty"`
	TaxIDNumbers      []string    `json:"tax_id_numbers,omitempty"`
	SSNNumbers        []string    `json:"ssn_numbers,omitempty"`
	OtherIDNumbers    []LabeledID `json:"other_id_numbers,omitempty"`
	EmailAddresses    []string    `json:"email_addresses,omitempty"`
	PhoneNumbers      []string    `json:"phone_numbers,omitempty"`
	Websites          []string    `json:"websites,omitempty"`

	SanctionsProgram string `json:"sanctions_program,omitempty"`
	Justification    string `json:"justification,omitempty"`
	OtherInformation string `json:"other_information,omitempty"`

	PublicationDate string `json:"publication_date,omitempty"`
	EnactmentDate   string `json:"enactment_date,omitempty"`
	EffectiveDate   string `json:"effective_date,omitempty"`
}

// IdentifierBucket names a canonical identifier type used by the adapters'
// label heuristics.
type IdentifierBucket string

const (
	BucketBIC          IdentifierBucket = "BIC"
	BucketIBAN         IdentifierBucket = "IBAN"
	BucketSSN          IdentifierBucket = "SSN"
	BucketPassport     IdentifierBucket = "PASSPORT"
	BucketNationalID   IdentifierBucket = "NATIONAL_ID"
	BucketTaxID        IdentifierBucket = "TAX_ID"
	BucketEmail        IdentifierBucket = "EMAIL"
	BucketWebsite      IdentifierBucket = "WEBSITE"
	BucketPhone        IdentifierBucket = "PHONE"
	BucketFax          IdentifierBucket = "FAX"
	BucketISIN         IdentifierBucket = "ISIN"
	BucketEquityTicker IdentifierBucket = "EQUITY_TICKER"
	BucketOther        IdentifierBucket = "OTHER"
)

// AddIdentifier routes a typed identifier value into the right bucket slice.
func (r *RawRecord) AddIdentifier(bucket IdentifierBucket, label, value string) {
	if value == "" {
		return
	}
	switch bucket {
	case BucketBIC:
		r.BICs = append(r.BICs, value)
	case BucketIBAN:
		r.IBANs = append(r.IBANs, value)
	case BucketSSN:
		r.SSNNumbers = append(r.SSNNumbers, value)
	case BucketPassport:
		r.PassportNumbers = append(r.PassportNumbers, value)
	case BucketNationalID:
		r.NationalIDNumbers = append(r.NationalIDNumbers, value)
	case BucketTaxID:
		r.TaxIDNumbers = append(r.TaxIDNumbers, value)
	case BucketEmail:
		r.EmailAddresses = append(r.EmailAddresses, value)
	case BucketWebsite:
		r.Websites = append(r.Websites, value)
	case BucketPhone, BucketFax:
		r.PhoneNumbers = append(r.PhoneNumbers, value)
	default:
		if label == "" {
			label = string(bucket)
		}
		r.OtherIDNumbers = append(r.OtherIDNumbers, LabeledID{Label: label, Value: value})
	}
}
