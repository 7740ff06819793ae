package iso20022

import (
	"strconv"
	"strings"
)

// Record renders the party as the flat display map carried in screening
// responses. Only populated fields appear; Role and Name are always set.
func (p *Party) Record() map[string]any {
	rec := map[string]any{
		"Role": p.Role,
		"Name": p.DisplayName(),
	}
	put(rec, "LEI", p.LEI())
	put(rec, "Identifier", p.IDs.ID)

	put(rec, "Country", p.Address.Country)
	put(rec, "City", coalesce(p.Address.City, p.Address.TownLocation))
	put(rec, "Postal Code", p.Address.PostalCode)
	put(rec, "Street", p.Address.Street)
	put(rec, "Building Number", p.Address.BuildingNumber)
	if len(p.Address.Lines) > 0 {
		rec["Address Line"] = strings.Join(p.Address.Lines, ", ")
	}
	put(rec, "State", p.Address.State)

	put(rec, "Country of Residence", p.Contact.CountryOfRes)
	put(rec, "Date Of Birth", p.Contact.DateOfBirth)
	put(rec, "Place Of Birth", p.Contact.PlaceOfBirth)

	put(rec, "Email", p.Contact.Email)
	put(rec, "Email Purpose", p.Contact.EmailPurpose)
	put(rec, "Phone", p.Contact.Phone)
	put(rec, "Mobile", p.Contact.Mobile)
	put(rec, "Fax", p.Contact.Fax)
	put(rec, "URL", p.Contact.URL)
	put(rec, "Job Title", p.Contact.JobTitle)
	put(rec, "Responsibility", p.Contact.Responsibility)
	put(rec, "Department", p.Contact.Department)
	put(rec, "Contact Channel Type", p.Contact.ChannelType)
	put(rec, "Contact Channel Id", p.Contact.ChannelID)
	put(rec, "Preferred Contact Method", p.Contact.PreferredMethod)

	put(rec, "Iban", p.Account.IBAN)
	put(rec, "Account Other", p.Account.OtherID)
	put(rec, "Account Id", p.AccountID())
	put(rec, "Account Currency", p.Account.Currency)
	put(rec, "Account Name", p.Account.Name)
	put(rec, "BIC", p.BIC())
	put(rec, "Clearing System Id", p.FinInst.ClearingSystem)
	put(rec, "Clearing Member Id", p.FinInst.ClearingMember)

	br := p.FinInst.Branch
	put(rec, "Branch Id", br.ID)
	put(rec, "Branch LEI", br.LEI)
	put(rec, "Branch Name", br.Name)
	put(rec, "Branch Street", br.Address.Street)
	put(rec, "Branch Building Number", br.Address.BuildingNumber)
	put(rec, "Branch Postal Code", br.Address.PostalCode)
	put(rec, "Branch City", br.Address.City)
	put(rec, "Branch Country", br.Address.Country)

	if len(p.IDs.Other) > 0 {
		rec["Other Identifiers"] = p.IDs.Other
	}

	ids := map[string]any{}
	put(ids, "bic", p.BIC())
	put(ids, "anyBIC", p.IDs.AnyBIC)
	put(ids, "lei", p.LEI())
	put(ids, "id", p.IDs.ID)
	if len(p.IDs.Other) > 0 {
		ids["other"] = p.IDs.Other
	}
	if len(ids) > 0 {
		rec["Structured Identifiers"] = ids
	}
	return rec
}

// TransactionRecord renders the transaction summary block of a screening
// response from the header fields and the first credit transfer.
func (m *Message) TransactionRecord() map[string]any {
	tx := m.Transaction()
	rec := map[string]any{}

	if h := m.AppHeader; h != nil {
		put(rec, "Business Message Id", h.BusinessMessageID)
		put(rec, "Application Header Created", h.CreatedAt)
		put(rec, "From BIC", h.FromBIC)
		put(rec, "To BIC", h.ToBIC)
		put(rec, "XML Schema Name", h.BusinessService)
	}

	put(rec, "Message Id", m.GroupHeader.MessageID)
	put(rec, "Creation Date Time", m.GroupHeader.CreatedAt)
	if m.GroupHeader.NumberOfTransactions > 0 {
		rec["Number Of Transactions"] = m.GroupHeader.NumberOfTransactions
	}
	put(rec, "Settlement Method", m.GroupHeader.SettlementMethod)

	put(rec, "Instr Id", tx.InstructionID)
	put(rec, "End To End Id", tx.EndToEndID)
	put(rec, "Tx Id", tx.TxID)
	put(rec, "UETR", tx.UETR)
	if tx.Amount != "" {
		if f, err := strconv.ParseFloat(tx.Amount, 64); err == nil {
			rec["Amount"] = f
		} else {
			rec["Amount"] = tx.Amount
		}
	}
	put(rec, "Currency", tx.Currency)
	put(rec, "Settlement Date", tx.SettlementDate)
	put(rec, "Requested Execution Date", tx.RequestedExecution)
	put(rec, "Charge Bearer", tx.ChargeBearer)
	put(rec, "Service Level", tx.ServiceLevel)
	put(rec, "Local Instrument", tx.LocalInstrument)
	put(rec, "Category Purpose", tx.CategoryPurpose)
	put(rec, "Purpose Code", tx.PurposeCode)
	if len(tx.Remittance) > 0 {
		rec["Remittance Information"] = strings.Join(tx.Remittance, " | ")
	}

	put(rec, "Message Definition", m.MessageDefinition())
	put(rec, "Message Family", m.MessageFamily())

	if !m.HasCustomerParties() {
		rec["Screening Applicable"] = false
		rec["Screening Note"] = "No customer parties present for this message type"
	}
	return rec
}

// SourceMessage renders the appHdr and grpHdr echo block of a response.
func (m *Message) SourceMessage() map[string]any {
	src := map[string]any{}
	if h := m.AppHeader; h != nil {
		app := map[string]any{}
		put(app, "fromBIC", h.FromBIC)
		put(app, "toBIC", h.ToBIC)
		put(app, "bizMsgId", h.BusinessMessageID)
		put(app, "msgDefId", h.MessageDefinition)
		put(app, "bizSvc", h.BusinessService)
		put(app, "created", h.CreatedAt)
		src["appHdr"] = app
	}

	grp := map[string]any{}
	put(grp, "msgId", m.GroupHeader.MessageID)
	put(grp, "createdDateTime", m.GroupHeader.CreatedAt)
	if m.GroupHeader.NumberOfTransactions > 0 {
		grp["nbOfTxs"] = m.GroupHeader.NumberOfTransactions
	}
	put(grp, "settlementMethod", m.GroupHeader.SettlementMethod)
	put(grp, "instructingAgentBIC", m.GroupHeader.InstructingAgentBIC)
	put(grp, "instructedAgentBIC", m.GroupHeader.InstructedAgentBIC)
	src["grpHdr"] = grp
	return src
}

// put sets key only for non-blank values, keeping response maps sparse.
func put(m map[string]any, key, val string) {
	if strings.TrimSpace(val) != "" {
		m[key] = val
	}
}
