package iso20022

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartyRecord(t *testing.T) {
	p := Party{
		Role: RoleDebtor,
		Name: "Viktor Petrov",
		Address: Address{
			Street:         "Tverskaya Ulitsa",
			BuildingNumber: "14",
			PostalCode:     "125009",
			City:           "Moscow",
			State:          "Moskva",
			Country:        "RU",
			Lines:          []string{"Tverskaya Ulitsa 14", "125009 Moscow"},
		},
		Contact: Contact{
			Email:        "v.petrov@example.ru",
			Phone:        "+7-495-5550192",
			CountryOfRes: "RU",
			DateOfBirth:  "1968-04-17",
			PlaceOfBirth: "Omsk, RU",
		},
		Account: Account{
			IBAN:     "RU0204452560040702810412345678901",
			Currency: "EUR",
		},
		IDs: Identifiers{
			ID:    "643-5529912",
			Other: []string{"P83442190 (Passport)"},
		},
	}

	rec := p.Record()
	assert.Equal(t, "Debtor", rec["Role"])
	assert.Equal(t, "Viktor Petrov", rec["Name"])
	assert.Equal(t, "643-5529912", rec["Identifier"])
	assert.Equal(t, "RU", rec["Country"])
	assert.Equal(t, "Moscow", rec["City"])
	assert.Equal(t, "125009", rec["Postal Code"])
	assert.Equal(t, "Tverskaya Ulitsa", rec["Street"])
	assert.Equal(t, "14", rec["Building Number"])
	assert.Equal(t, "Tverskaya Ulitsa 14, 125009 Moscow", rec["Address Line"])
	assert.Equal(t, "Moskva", rec["State"])
	assert.Equal(t, "RU", rec["Country of Residence"])
	assert.Equal(t, "1968-04-17", rec["Date Of Birth"])
	assert.Equal(t, "Omsk, RU", rec["Place Of Birth"])
	assert.Equal(t, "v.petrov@example.ru", rec["Email"])
	assert.Equal(t, "+7-495-5550192", rec["Phone"])
	assert.Equal(t, "RU0204452560040702810412345678901", rec["Iban"])
	assert.Equal(t, "RU0204452560040702810412345678901", rec["Account Id"])
	assert.Equal(t, "EUR", rec["Account Currency"])
	assert.Equal(t, []string{"P83442190 (Passport)"}, rec["Other Identifiers"])

	ids, ok := rec["Structured Identifiers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "643-5529912", ids["id"])
	assert.Equal(t, []string{"P83442190 (Passport)"}, ids["other"])

	// nothing came from an institution block
	assert.NotContains(t, rec, "BIC")
	assert.NotContains(t, rec, "LEI")
	assert.NotContains(t, rec, "Branch Id")
	assert.NotContains(t, rec, "Clearing System Id")
}

func TestPartyRecord_Agent(t *testing.T) {
	p := Party{
		Role: RoleDebtorAgent,
		FinInst: FinancialInstitution{
			BIC:            "MOSWRUMMXXX",
			LEI:            "253400QVWKKE9AD3O821",
			Name:           "Moscow Western Bank",
			ClearingSystem: "RUCBC",
			ClearingMember: "044525225",
			Branch: Branch{
				ID:   "MOS-014",
				Name: "Arbat Branch",
				Address: Address{
					Street:  "Arbat",
					City:    "Moscow",
					Country: "RU",
				},
			},
		},
	}
	p.Name = "Moscow Western Bank"

	rec := p.Record()
	assert.Equal(t, "DebtorAgent", rec["Role"])
	assert.Equal(t, "Moscow Western Bank", rec["Name"])
	assert.Equal(t, "MOSWRUMMXXX", rec["BIC"])
	assert.Equal(t, "253400QVWKKE9AD3O821", rec["LEI"])
	assert.Equal(t, "RUCBC", rec["Clearing System Id"])
	assert.Equal(t, "044525225", rec["Clearing Member Id"])
	assert.Equal(t, "MOS-014", rec["Branch Id"])
	assert.Equal(t, "Arbat Branch", rec["Branch Name"])
	assert.Equal(t, "Arbat", rec["Branch Street"])
	assert.Equal(t, "Moscow", rec["Branch City"])
	assert.Equal(t, "RU", rec["Branch Country"])

	ids, ok := rec["Structured Identifiers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MOSWRUMMXXX", ids["bic"])
}

func TestPartyRecord_MinimalKeepsRoleAndName(t *testing.T) {
	p := Party{Role: RoleReceiver, FinInst: FinancialInstitution{BIC: "BANKDEFFXXX"}}

	rec := p.Record()
	// the BIC backfills the name and shows up as the institution id
	assert.Equal(t, "BANKDEFFXXX", rec["Name"])
	assert.Equal(t, "BANKDEFFXXX", rec["BIC"])
	assert.NotContains(t, rec, "Country")
	assert.NotContains(t, rec, "Email")
}

func TestTransactionRecord(t *testing.T) {
	msg, err := Parse([]byte(pacsFixture))
	require.NoError(t, err)

	rec := msg.TransactionRecord()
	assert.Equal(t, "MSG-2026-000517", rec["Business Message Id"])
	assert.Equal(t, "2026-08-19T09:15:00Z", rec["Application Header Created"])
	assert.Equal(t, "BANKGB2LXXX", rec["From BIC"])
	assert.Equal(t, "BANKDEFFXXX", rec["To BIC"])
	assert.Equal(t, "swift.cbprplus.02", rec["XML Schema Name"])
	assert.Equal(t, "INSTR-889123", rec["Message Id"])
	assert.Equal(t, 1, rec["Number Of Transactions"])
	assert.Equal(t, "INDA", rec["Settlement Method"])
	assert.Equal(t, "INSTR-1", rec["Instr Id"])
	assert.Equal(t, "E2E-20260819-001", rec["End To End Id"])
	assert.Equal(t, "TX-5501", rec["Tx Id"])
	assert.Equal(t, 74250.00, rec["Amount"])
	assert.Equal(t, "EUR", rec["Currency"])
	assert.Equal(t, "2026-08-19", rec["Settlement Date"])
	assert.Equal(t, "SHAR", rec["Charge Bearer"])
	assert.Equal(t, "GDDS", rec["Purpose Code"])
	assert.Equal(t, "Invoice 2026-PO-7741", rec["Remittance Information"])
	assert.Equal(t, "pacs.008.001.09", rec["Message Definition"])
	assert.Equal(t, "pacs", rec["Message Family"])

	// customer parties are present so the applicability flag stays off
	assert.NotContains(t, rec, "Screening Applicable")
	assert.NotContains(t, rec, "Screening Note")
}

func TestTransactionRecord_NoCustomerParties(t *testing.T) {
	msg := &Message{
		Kind: KindPacs008,
		Parties: []Party{
			{Role: RoleInstructingAgent, FinInst: FinancialInstitution{BIC: "BANKGB2LXXX"}},
		},
	}

	rec := msg.TransactionRecord()
	assert.Equal(t, false, rec["Screening Applicable"])
	assert.Equal(t, "No customer parties present for this message type", rec["Screening Note"])
}

func TestSourceMessage(t *testing.T) {
	msg, err := Parse([]byte(pacsFixture))
	require.NoError(t, err)

	src := msg.SourceMessage()
	app, ok := src["appHdr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BANKGB2LXXX", app["fromBIC"])
	assert.Equal(t, "BANKDEFFXXX", app["toBIC"])
	assert.Equal(t, "MSG-2026-000517", app["bizMsgId"])
	assert.Equal(t, "pacs.008.001.09", app["msgDefId"])

	grp, ok := src["grpHdr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INSTR-889123", grp["msgId"])
	assert.Equal(t, 1, grp["nbOfTxs"])
	assert.Equal(t, "INDA", grp["settlementMethod"])
}

func TestSourceMessage_NoHeader(t *testing.T) {
	msg, err := Parse([]byte(painFixture))
	require.NoError(t, err)

	src := msg.SourceMessage()
	assert.NotContains(t, src, "appHdr")
	grp, ok := src["grpHdr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BATCH-2026-18", grp["msgId"])
}
