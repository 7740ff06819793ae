// Package model defines the canonical watchlist record and the raw
// source-specific shapes the adapters produce.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Classification buckets every listed subject.
type Classification string

const (
	ClassIndividual Classification = "individual"
	ClassEntity     Classification = "entity"
	ClassVessel     Classification = "vessel"
	ClassAircraft   Classification = "aircraft"
)

// Source names the authority list a record came from.
type Source string

const (
	SourceOFACSDN  Source = "OFAC_SDN"
	SourceOFACCons Source = "OFAC_CONS"
	SourceUK       Source = "UK"
	SourceUN       Source = "UN"
	SourceEU       Source = "EU"
	SourceAU       Source = "AU"
	SourceCA       Source = "CA"
	SourceSECO     Source = "SECO"
)

// LabeledID is an identifier whose source label matched no canonical bucket.
type LabeledID struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StringSet is an ordered multiset with case-insensitive deduplication.
// Insertion order is preserved; the first spelling of a value wins.
type StringSet struct {
	values []string
	seen   map[string]struct{}
}

// Add appends v unless an equal value (case-folded) is already present.
// Empty strings are ignored.
func (s *StringSet) Add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	key := strings.ToLower(v)
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, v)
}

// AddAll appends every value in vs.
func (s *StringSet) AddAll(vs ...string) {
	for _, v := range vs {
		s.Add(v)
	}
}

// Remove drops v (case-folded comparison) if present.
func (s *StringSet) Remove(v string) {
	key := strings.ToLower(strings.TrimSpace(v))
	if s.seen == nil {
		return
	}
	if _, ok := s.seen[key]; !ok {
		return
	}
	delete(s.seen, key)
	kept := s.values[:0]
	for _, existing := range s.values {
		if strings.ToLower(existing) != key {
			kept = append(kept, existing)
		}
	}
	s.values = kept
}

// Values returns the contents in insertion order.
func (s *StringSet) Values() []string {
	if len(s.values) == 0 {
		return nil
	}
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// First returns the earliest-inserted value, or "".
func (s *StringSet) First() string {
	if len(s.values) == 0 {
		return ""
	}
	return s.values[0]
}

// Len returns the number of distinct values.
func (s *StringSet) Len() int { return len(s.values) }

// NewStringSet builds a set from vs.
func NewStringSet(vs ...string) StringSet {
	var s StringSet
	s.AddAll(vs...)
	return s
}

// MarshalJSON encodes the set as a plain JSON array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	vals := s.values
	if vals == nil {
		vals = []string{}
	}
	return json.Marshal(vals)
}

// UnmarshalJSON decodes a JSON array, re-applying deduplication.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var vals []string
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	*s = NewStringSet(vals...)
	return nil
}

// NormalizeIdentifier canonicalises an identifier value: NFKC, uppercase,
// all spaces stripped.
func NormalizeIdentifier(v string) string {
	v = norm.NFKC.String(v)
	v = strings.ToUpper(v)
	v = strings.ReplaceAll(v, " ", "")
	return strings.TrimSpace(v)
}

// Provenance records where and when a record was ingested.
type Provenance struct {
	SourceURL  string    `json:"source_url"`
	IngestedAt time.Time `json:"ingested_at"`
	ETag       string    `json:"etag,omitempty"`
}

// Entity is the canonical watchlist record, one row in the index.
// (ListName, ListID) is the primary key.
type Entity struct {
	ListName string `json:"list_name"`
	ListID   string `json:"list_id"`
	GlobalID string `json:"global_id"`

	Classification Classification `json:"classification"`

	PrimaryName    string    `json:"primary_name,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	FirstName      string    `json:"first_name,omitempty"`
	MiddleName     string    `json:"middle_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	OtherFirstName string    `json:"other_first_name,omitempty"`
	Aliases        StringSet `json:"aliases,omitempty"`

	BirthYear  int `json:"birth_year,omitempty"`
	BirthMonth int `json:"birth_month,omitempty"`
	BirthDay   int `json:"birth_day,omitempty"`

	PlaceOfBirthText      string `json:"place_of_birth_text,omitempty"`
	Sex                   string `json:"sex,omitempty"`
	Nationality           string `json:"nationality,omitempty"`
	CitizenshipCountry    string `json:"citizenship_country,omitempty"`
	CitizenshipCountryISO string `json:"citizenship_country_iso,omitempty"`

	PrimaryAddress string    `json:"primary_address,omitempty"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	PostalCode     string    `json:"postal_code,omitempty"`
	Country        string    `json:"country,omitempty"`
	CountryISO     string    `json:"country_iso,omitempty"`
	Addresses      StringSet `json:"addresses,omitempty"`

	BICs              StringSet   `json:"bics,omitempty"`
	IBANs             StringSet   `json:"ibans,omitempty"`
	PassportNumbers   StringSet   `json:"passport_numbers,omitempty"`
	NationalIDNumbers StringSet   `json:"national_id_numbers,omitempty"`
	TaxIDNumbers      StringSet   `json:"tax_id_numbers,omitempty"`
	SSNNumbers        StringSet   `json:"ssn_numbers,omitempty"`
	OtherIDNumbers    []LabeledID `json:"other_id_numbers,omitempty"`
	EmailAddresses    StringSet   `json:"email_addresses,omitempty"`
	PhoneNumbers      StringSet   `json:"phone_numbers,omitempty"`
	Websites          StringSet   `json:"websites,omitempty"`

	SanctionsProgramName string `json:"sanctions_program_name,omitempty"`
	JustificationText    string `json:"justification_text,omitempty"`
	OtherInformationText string `json:"other_information_text,omitempty"`

	PublicationDate string `json:"publication_date,omitempty"`
	EnactmentDate   string `json:"enactment_date,omitempty"`
	EffectiveDate   string `json:"effective_date,omitempty"`

	Provenance Provenance `json:"provenance"`
}

// DisplayName returns the best available name for the entity, trying the
// name fields in order of authority.
func (e *Entity) DisplayName() string {
	candidates := []string{
		e.PrimaryName,
		e.FullName,
		strings.TrimSpace(strings.Join(nonEmpty(e.FirstName, e.MiddleName, e.LastName), " ")),
		strings.TrimSpace(strings.Join(nonEmpty(e.OtherFirstName, e.LastName), " ")),
		strings.TrimSpace(strings.Join(nonEmpty(e.LastName, e.FirstName, e.MiddleName), " ")),
		strings.TrimSpace(strings.Join(nonEmpty(e.LastName, e.OtherFirstName), " ")),
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

// BirthDateString renders the known date-of-birth components, keeping
// unknown components out of the string: "1968", "1968-04" or "1968-04-17".
func (e *Entity) BirthDateString() string {
	if e.BirthYear == 0 {
		return ""
	}
	if e.BirthMonth == 0 {
		return fmt.Sprintf("%04d", e.BirthYear)
	}
	if e.BirthDay == 0 {
		return fmt.Sprintf("%04d-%02d", e.BirthYear, e.BirthMonth)
	}
	return fmt.Sprintf("%04d-%02d-%02d", e.BirthYear, e.BirthMonth, e.BirthDay)
}

// IDNumberValues returns every identity number that participates in the
// id_exact signal: passports, national IDs, tax IDs, SSNs and other ids.
func (e *Entity) IDNumberValues() []string {
	var out []string
	out = append(out, e.PassportNumbers.Values()...)
	out = append(out, e.NationalIDNumbers.Values()...)
	out = append(out, e.TaxIDNumbers.Values()...)
	out = append(out, e.SSNNumbers.Values()...)
	for _, id := range e.OtherIDNumbers {
		if id.Value != "" {
			out = append(out, id.Value)
		}
	}
	return out
}

func nonEmpty(vs ...string) []string {
	out := vs[:0]
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
