package watchlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/model"
)

const euFixture = `<?xml version="1.0" encoding="utf-8"?>
<export generationDate="2026-08-19T07:00:00">
  <sanctionEntity logicalId="13" euReferenceNumber="EU.27.28">
    <remark>Listed for actions undermining territorial integrity.</remark>
    <remark>Crimea regional figure.</remark>
    <regulation regulationType="amendment" organisationType="person" publicationDate="2014-03-21" entryIntoForceDate="2014-03-21" numberTitle="269/2014 (OJ L78)" programme="UKR" logicalId="555">
      <publicationUrl>http://eur-lex.europa.eu/LexUriServ/LexUriServ.do?uri=OJ:L:2014:078</publicationUrl>
    </regulation>
    <regulation regulationType="amendment" organisationType="person" publicationDate="2022-02-26" entryIntoForceDate="2022-02-26" numberTitle="2022/332 (OJ L53)" programme="UKR" logicalId="556">
      <publicationUrl>http://eur-lex.europa.eu/legal-content/EN/TXT/?uri=OJ:L:2022:053</publicationUrl>
    </regulation>
    <subjectType code="person" classificationCode="P"/>
    <nameAlias strong="false" wholeName="Sergey AKSYONOV" firstName="Sergey" lastName="AKSYONOV" nameLanguage="EN"/>
    <nameAlias strong="true" firstName="Sergei" middleName="Valeryevich" lastName="AKSENOV" gender="M" function="so-called Prime Minister of Crimea">
      <regulationSummary publicationDate="2014-03-21" numberTitle="269/2014 (OJ L78)" publicationUrl="http://eur-lex.europa.eu/LexUriServ/LexUriServ.do?uri=OJ:L:2014:078"/>
    </nameAlias>
    <citizenship countryIso2Code="RU" countryDescription="RUSSIAN FEDERATION"/>
    <birthdate circa="false" city="Beltsy" countryIso2Code="MD" countryDescription="MOLDOVA, REPUBLIC OF" birthdate="1972-11-26" dayOfMonth="26" monthOfYear="11" year="1972"/>
    <identification number="AB123456" identificationTypeCode="passport"/>
    <identification>
      <documentation type="National ID" number="0801-XYZ" countryIso2Code="RU" countryDescription="RUSSIAN FEDERATION" comment="issued 2005"/>
    </identification>
    <contactInfo>
      <email>press@crimea.example</email>
      <website>crimea.example</website>
      <phone>+7 365 555 0100</phone>
    </contactInfo>
  </sanctionEntity>
  <sanctionEntity logicalId="777" euReferenceNumber="EU.900.1">
    <regulation publicationDate="2022-04-08" entryIntoForceDate="2022-04-08" numberTitle="2022/576" programme="UKR"/>
    <subjectType code="enterprise" classificationCode="E"/>
    <nameAlias strong="true" wholeName="PJSC AEROFLOT"/>
    <address city="Moscow" street="Arbat 10" zipCode="119019" countryIso2Code="RU" countryDescription="RUSSIAN FEDERATION"/>
  </sanctionEntity>
</export>`

func TestEUExtract_Person(t *testing.T) {
	src := &EU{}

	recs, err := src.Extract([]byte(euFixture))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	rec := recs[0]
	assert.Equal(t, model.SourceEU, rec.Source)
	assert.Equal(t, "13", rec.ListID)
	assert.Equal(t, model.Classification("person"), rec.Classification)

	// the first remark is the justification, the rest become other info
	assert.Equal(t, "Listed for actions undermining territorial integrity.", rec.Justification)
	assert.Contains(t, rec.OtherInformation, "Crimea regional figure.")

	// regulation dates: publication and enactment take the newest regulation,
	// the effective date keeps the original entry into force
	assert.Equal(t, "UKR", rec.SanctionsProgram)
	assert.Equal(t, "2022-02-26", rec.PublicationDate)
	assert.Equal(t, "2022-02-26", rec.EnactmentDate)
	assert.Equal(t, "2014-03-21", rec.EffectiveDate)

	// the strong alias names the record even when a weak one precedes it
	assert.Equal(t, "Sergei Valeryevich AKSENOV", rec.PrimaryName)
	assert.Equal(t, "Sergei Valeryevich AKSENOV", rec.FullName)
	assert.Equal(t, []string{"Sergey AKSYONOV", "Sergei Valeryevich AKSENOV"}, rec.Aliases)

	// structured parts fill first-wins across aliases
	assert.Equal(t, "Sergey", rec.FirstName)
	assert.Equal(t, "Valeryevich", rec.MiddleName)
	assert.Equal(t, "AKSYONOV", rec.LastName)
	assert.Equal(t, "M", rec.Sex)

	assert.Equal(t, "RUSSIAN FEDERATION", rec.CitizenshipCountry)
	assert.Equal(t, "RUSSIAN FEDERATION", rec.Nationality)
	assert.Equal(t, "RU", rec.CitizenshipCountryISO)

	assert.Equal(t, 1972, rec.BirthYear)
	assert.Equal(t, 11, rec.BirthMonth)
	assert.Equal(t, 26, rec.BirthDay)
	assert.Equal(t, "Beltsy, MOLDOVA, REPUBLIC OF", rec.PlaceOfBirth)

	assert.Equal(t, []string{"AB123456"}, rec.PassportNumbers)
	assert.Equal(t, []string{"0801-XYZ"}, rec.NationalIDNumbers)
	assert.Contains(t, rec.OtherInformation,
		"document: type=National ID; number=0801-XYZ; country=RUSSIAN FEDERATION; iso2=RU; note=issued 2005")

	assert.Equal(t, []string{"press@crimea.example"}, rec.EmailAddresses)
	assert.Equal(t, []string{"crimea.example"}, rec.Websites)
	assert.Equal(t, []string{"+7 365 555 0100"}, rec.PhoneNumbers)

	assert.Contains(t, rec.OtherInformation, "subjectType=person")
	assert.Contains(t, rec.OtherInformation, "function=so-called Prime Minister of Crimea")
}

func TestEUExtract_Enterprise(t *testing.T) {
	src := &EU{}

	recs, err := src.Extract([]byte(euFixture))
	require.NoError(t, err)

	rec := recs[1]
	assert.Equal(t, "777", rec.ListID)
	assert.Equal(t, model.Classification("enterprise"), rec.Classification)
	assert.Equal(t, "PJSC AEROFLOT", rec.FullName)
	assert.Equal(t, "Moscow", rec.City)
	assert.Equal(t, "119019", rec.PostalCode)
	assert.Equal(t, "RUSSIAN FEDERATION", rec.Country)
	assert.Equal(t, "RU", rec.CountryISO)
	assert.Equal(t, "Arbat 10, Moscow, 119019, RUSSIAN FEDERATION", rec.PrimaryAddress)
}

func TestEUNameAlias_Assembled(t *testing.T) {
	whole := euNameAlias{WholeName: " PJSC AEROFLOT ", FirstName: "ignored"}
	assert.Equal(t, "PJSC AEROFLOT", whole.assembled())

	parts := euNameAlias{FirstName: "Sergei", LastName: "AKSENOV"}
	assert.Equal(t, "Sergei AKSENOV", parts.assembled())

	assert.True(t, (&euNameAlias{Strong: "TRUE"}).isStrong())
	assert.True(t, (&euNameAlias{Strong: "1"}).isStrong())
	assert.False(t, (&euNameAlias{Strong: "false"}).isStrong())
	assert.False(t, (&euNameAlias{}).isStrong())
}
