package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/model"
)

func TestNewRecordView_Fields(t *testing.T) {
	v := NewRecordView(&model.Entity{
		ListName:       "OFAC_SDN",
		ListID:         "12345",
		Classification: model.ClassIndividual,
		PrimaryName:    "Ivan Petrovich SMIRNOV",
		Aliases:        model.NewStringSet("Vanya Smirnov"),
		BirthYear:      1968, BirthMonth: 4, BirthDay: 7,
		PlaceOfBirthText:  "Tripoli, Libya",
		Nationality:       "Russian",
		PrimaryAddress:    "23 Karl Marx Street",
		City:              "Moscow",
		PostalCode:        "101000",
		Country:           "Russia",
		CountryISO:        "RU",
		BICs:              model.NewStringSet("abcdefgh"),
		IBANs:             model.NewStringSet("ru02 0445 2560 0407 0281 0412 3456 7890 1"),
		PassportNumbers:   model.NewStringSet("ab 123456"),
		EmailAddresses:    model.NewStringSet("First@Example.com", "second@example.com"),
		JustificationText: "Listed for sanctions evasion.",
	})

	assert.Equal(t, "OFAC_SDN", v.ListName)
	assert.Equal(t, "12345", v.ListID)
	assert.Equal(t, "individual", v.Classification)
	assert.Equal(t, "Ivan Petrovich SMIRNOV", v.NameRaw)
	assert.Equal(t, "ivan petrovich smirnov", v.Name)
	assert.Equal(t, []string{"ivan", "petrovich", "smirnov"}, v.NameTokens)
	assert.Equal(t, []string{"vanya smirnov"}, v.Aliases)
	require.Len(t, v.AliasTokens, 1)
	assert.Equal(t, []string{"vanya", "smirnov"}, v.AliasTokens[0])
	assert.Equal(t, "1968-04-07", v.DateOfBirth)
	assert.Equal(t, "tripoli", v.POBCity)
	assert.Equal(t, "libya", v.POBCountry)
	assert.Equal(t, "russian", v.Nationality)
	assert.Equal(t, "russia", v.Country)
	assert.Equal(t, "RU", v.CountryISO)
	assert.Equal(t, "moscow", v.City)
	assert.Equal(t, "101000", v.Post)
	assert.Equal(t, "23 karl marx street", v.Street)
	assert.Equal(t, []string{"ABCDEFGH"}, v.BICs)
	assert.Equal(t, []string{"RU0204452560040702810412345678901"}, v.IBANs)
	assert.Equal(t, []string{"AB123456"}, v.IDNumbers)
	assert.Equal(t, "first@example.com", v.Email)
}

func TestNewRecordView_AddressPool(t *testing.T) {
	v := NewRecordView(&model.Entity{
		ListName: "EU_FSF", ListID: "1", PrimaryName: "X",
		PrimaryAddress: "23 Karl Marx Street",
		City:           "Moscow",
		PostalCode:     "101000",
		Country:        "Russia",
		Addresses:      model.NewStringSet("Somewhere Else", "23 Karl Marx Street"),
	})

	// primary, then the composed locality line, then unseen alternates
	assert.Equal(t, []string{
		"23 karl marx street",
		"moscow 101000 russia",
		"somewhere else",
	}, v.Addresses)
	assert.Equal(t, "23 karl marx street", v.Street)
}

func TestNewRecordView_ISOFallback(t *testing.T) {
	v := NewRecordView(&model.Entity{
		ListName: "SECO", ListID: "2", PrimaryName: "X",
		Country: "Switzerland",
	})
	assert.Equal(t, "CH", v.CountryISO)

	v = NewRecordView(&model.Entity{
		ListName: "SECO", ListID: "3", PrimaryName: "X",
		Country: "Switzerland", CountryISO: "CH",
	})
	assert.Equal(t, "CH", v.CountryISO)
}

func TestNewRecordView_NameFromParts(t *testing.T) {
	v := NewRecordView(&model.Entity{
		ListName: "UN_CONSOLIDATED", ListID: "QDi.002",
		FirstName: "Sabri", LastName: "al-Banna",
	})

	assert.Equal(t, "Sabri al-Banna", v.NameRaw)
	assert.Equal(t, "sabri al-banna", v.Name)
}

func TestNewRecordView_PartialBirthDate(t *testing.T) {
	v := NewRecordView(&model.Entity{
		ListName: "UK_HMT", ListID: "9", PrimaryName: "X",
		BirthYear: 1968,
	})
	assert.Equal(t, "1968", v.DateOfBirth)

	v = NewRecordView(&model.Entity{
		ListName: "UK_HMT", ListID: "10", PrimaryName: "X",
	})
	assert.Empty(t, v.DateOfBirth)
}

func TestRecordView_MatchSummary(t *testing.T) {
	v := &RecordView{Justification: "Listed for sanctions evasion.", OtherInfo: "Moves funds via shell firms."}
	assert.Equal(t, "Listed for sanctions evasion. Moves funds via shell firms.", v.MatchSummary())

	v = &RecordView{Justification: "Listed for sanctions evasion."}
	assert.Equal(t, "Listed for sanctions evasion.", v.MatchSummary())

	v = &RecordView{OtherInfo: "Moves funds via shell firms."}
	assert.Equal(t, "Moves funds via shell firms.", v.MatchSummary())

	v = &RecordView{}
	assert.Empty(t, v.MatchSummary())
}
