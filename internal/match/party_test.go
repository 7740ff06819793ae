package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeParty_Fields(t *testing.T) {
	v := NormalizeParty(PartyInput{
		Role:  "debtor",
		Index: 2,
		Name:  "  Müller Import-Export GmbH ",

		Street:     "Hauptstraße 5",
		City:       "München",
		State:      "Bayern",
		PostalCode: "80331",
		Country:    "Germany",

		Nationality: "German",
		Email:       "Info@Example.COM",
		DateOfBirth: "1968-04-07",
	})

	assert.Equal(t, "debtor", v.Role)
	assert.Equal(t, 2, v.Index)
	assert.Equal(t, "Müller Import-Export GmbH", v.NameRaw)
	assert.Equal(t, "müller import-export gmbh", v.Name)
	assert.Equal(t, []string{"muller", "import-export", "gmbh"}, v.NameTokens)
	assert.Equal(t, "hauptstrasse 5", v.Street)
	assert.Equal(t, "münchen", v.Town)
	assert.Equal(t, "bayern", v.State)
	assert.Equal(t, "80331", v.PostCode)
	assert.Equal(t, "germany", v.Country)
	assert.Equal(t, "DE", v.CountryISO)
	assert.Equal(t, "german", v.Nationality)
	assert.Equal(t, "info@example.com", v.Email)
	assert.Equal(t, "1968-04-07", v.DateOfBirth)
}

func TestNormalizeParty_CollapsesDoubledName(t *testing.T) {
	v := NormalizeParty(PartyInput{Name: "Ivan Petrov Ivan Petrov"})

	assert.Equal(t, "ivan petrov", v.Name)
	assert.Equal(t, []string{"ivan", "petrov"}, v.NameTokens)
}

func TestNormalizeParty_PlaceOfBirth(t *testing.T) {
	v := NormalizeParty(PartyInput{Name: "X Y", PlaceOfBirth: "Tripoli, Libya"})
	assert.Equal(t, "tripoli", v.POBCity)
	assert.Equal(t, "libya", v.POBCountry)

	v = NormalizeParty(PartyInput{Name: "X Y", PlaceOfBirth: "Moscow"})
	assert.Equal(t, "moscow", v.POBCity)
	assert.Empty(t, v.POBCountry)
}

func TestNormalizeParty_Identifiers(t *testing.T) {
	v := NormalizeParty(PartyInput{
		Name: "X Y",
		BIC:  " deutdeff ",
		IBAN: "de44 5001 0517 5407 3249 31",
		IDNumbers: []string{
			"AB 123456",
			"ab123456", // same after normalization
			"",
			"X-99",
		},
	})

	assert.Equal(t, "DEUTDEFF", v.BIC)
	assert.Equal(t, "DE44500105175407324931", v.IBAN)
	assert.Equal(t, []string{"AB123456", "X-99"}, v.IDNumbers)
}

func TestNormalizeParty_CountryISO(t *testing.T) {
	// explicit code wins over the text
	v := NormalizeParty(PartyInput{Name: "X", CountryISO: "de", Country: "France"})
	assert.Equal(t, "DE", v.CountryISO)

	// otherwise resolved from the text
	v = NormalizeParty(PartyInput{Name: "X", Country: "Russian Federation"})
	assert.Equal(t, "RU", v.CountryISO)

	v = NormalizeParty(PartyInput{Name: "X", Country: "Atlantis"})
	assert.Empty(t, v.CountryISO)
}

func TestNormalizeParty_AliasesSkipBlank(t *testing.T) {
	v := NormalizeParty(PartyInput{
		Name:    "X Y",
		Aliases: []string{"", "   ", "Abu Nidal"},
	})

	require.Len(t, v.Aliases, 1)
	assert.Equal(t, "abu nidal", v.Aliases[0])
	require.Len(t, v.AliasTokens, 1)
	assert.Equal(t, []string{"abu", "nidal"}, v.AliasTokens[0])
}
