// Package iso20022 parses ISO 20022 payment messages into the party and
// transaction shapes the screening engine consumes. Parsing is tolerant of
// namespace and envelope variation: elements are matched by local name, so a
// pacs.008.001.09 document, a head.001-wrapped business message and a
// proprietary envelope around both all decode the same way.
package iso20022

import "strings"

// MessageKind identifies the payment block found in a document.
type MessageKind string

const (
	KindPacs008 MessageKind = "pacs.008"
	KindPain001 MessageKind = "pain.001"
)

// Customer roles carry the people and companies a payment moves money
// between; everything else on a message is an institution.
const (
	RoleDebtor           = "Debtor"
	RoleCreditor         = "Creditor"
	RoleUltimateDebtor   = "UltimateDebtor"
	RoleUltimateCreditor = "UltimateCreditor"
	RoleInitiatingParty  = "InitiatingParty"
	RoleDebtorAgent      = "DebtorAgent"
	RoleCreditorAgent    = "CreditorAgent"
	RoleForwardingAgent  = "ForwardingAgent"
	RoleInstructingAgent = "InstructingAgent"
	RoleInstructedAgent  = "InstructedAgent"
	RoleSender           = "Sender"
	RoleReceiver         = "Receiver"
)

// Message is a fully extracted payment message.
type Message struct {
	Kind        MessageKind
	AppHeader   *AppHeader // nil when the document has no business application header
	GroupHeader GroupHeader

	// Transactions holds every credit transfer block in document order.
	// The first one drives the transaction summary of a response.
	Transactions []Transaction

	// Parties holds every distinct party across the whole message,
	// customer roles and institutions alike, in extraction order.
	Parties []Party

	// docDefinition is the message definition derived from the Document
	// namespace, used when no application header names one.
	docDefinition string
}

// AppHeader carries the head.001 business application header fields.
type AppHeader struct {
	FromBIC           string
	ToBIC             string
	BusinessMessageID string
	MessageDefinition string
	BusinessService   string
	CreatedAt         string
}

// GroupHeader carries the GrpHdr fields shared by pacs.008 and pain.001.
type GroupHeader struct {
	MessageID            string
	CreatedAt            string
	NumberOfTransactions int
	SettlementMethod     string
	InstructingAgentBIC  string
	InstructedAgentBIC   string
}

// Transaction is one credit transfer instruction.
type Transaction struct {
	InstructionID string
	EndToEndID    string
	TxID          string
	UETR          string

	ServiceLevel    string
	LocalInstrument string
	CategoryPurpose string

	// Amount keeps the wire text so trailing decimals survive the trip
	// into the response.
	Amount   string
	Currency string

	SettlementDate     string
	RequestedExecution string
	ChargeBearer       string
	PurposeCode        string
	Remittance         []string
}

// Party is one actor on a payment message.
type Party struct {
	Role string
	Name string

	Address Address
	Contact Contact
	Account Account
	IDs     Identifiers
	FinInst FinancialInstitution
}

// Address is a postal address in ISO component form.
type Address struct {
	Street         string
	BuildingNumber string
	PostalCode     string
	City           string
	TownLocation   string
	State          string
	Country        string
	Lines          []string
}

// Contact holds contact details plus the private-identification birth facts.
type Contact struct {
	Email           string
	EmailPurpose    string
	Phone           string
	Mobile          string
	Fax             string
	URL             string
	JobTitle        string
	Responsibility  string
	Department      string
	ChannelType     string
	ChannelID       string
	PreferredMethod string
	CountryOfRes    string
	DateOfBirth     string
	PlaceOfBirth    string // "city" or "city, country"
}

// Account identifies the cash account attached to a party.
type Account struct {
	IBAN     string
	OtherID  string
	Currency string
	Name     string
}

// Identifiers holds the organisation or private identification of a party.
type Identifiers struct {
	AnyBIC string
	LEI    string
	ID     string   // first structured identifier
	Other  []string // remaining identifiers, formatted "id (scheme)"
}

// FinancialInstitution identifies an agent party's institution.
type FinancialInstitution struct {
	BIC            string
	LEI            string
	Name           string
	ClearingSystem string
	ClearingMember string
	Branch         Branch
}

// Branch is the optional branch block of an agent identification.
type Branch struct {
	ID      string
	LEI     string
	Name    string
	Address Address
}

// BIC returns the institution BIC of the party, falling back to the
// organisation AnyBIC.
func (p *Party) BIC() string {
	if p.FinInst.BIC != "" {
		return p.FinInst.BIC
	}
	return p.IDs.AnyBIC
}

// LEI returns the party LEI from either identification block.
func (p *Party) LEI() string {
	if p.IDs.LEI != "" {
		return p.IDs.LEI
	}
	return p.FinInst.LEI
}

// AccountID returns the screenable account identifier, IBAN first.
func (p *Party) AccountID() string {
	if p.Account.IBAN != "" {
		return p.Account.IBAN
	}
	return p.Account.OtherID
}

// DisplayName returns the party name, backfilled in order from BIC, LEI,
// structured identifier and account id so an unnamed institution still
// produces a screenable string.
func (p *Party) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	for _, v := range []string{p.BIC(), p.LEI(), p.IDs.ID, p.AccountID()} {
		if v != "" {
			return v
		}
	}
	return ""
}

// IDNumbers returns every identifier worth matching against watchlist
// document numbers.
func (p *Party) IDNumbers() []string {
	var out []string
	for _, v := range []string{p.IDs.AnyBIC, p.IDs.LEI, p.FinInst.LEI, p.IDs.ID, p.Account.OtherID} {
		if v != "" {
			out = append(out, v)
		}
	}
	for _, o := range p.IDs.Other {
		if i := strings.Index(o, " ("); i > 0 {
			o = o[:i]
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// empty reports whether the party carries nothing screenable.
func (p *Party) empty() bool {
	return p.DisplayName() == "" &&
		p.Address.Country == "" && p.Address.City == "" && len(p.Address.Lines) == 0 &&
		p.Contact.Email == "" && p.Account.IBAN == ""
}

// isCustomerRole reports whether the role names a customer rather than an
// institution in the payment chain.
func isCustomerRole(role string) bool {
	switch role {
	case RoleDebtor, RoleCreditor, RoleUltimateDebtor, RoleUltimateCreditor, RoleInitiatingParty:
		return true
	}
	return false
}

// CustomerParties returns the customer-role parties of the message.
func (m *Message) CustomerParties() []Party {
	var out []Party
	for _, p := range m.Parties {
		if isCustomerRole(p.Role) {
			out = append(out, p)
		}
	}
	return out
}

// HasCustomerParties reports whether any customer-role party was extracted.
// Messages without one are not screening applicable.
func (m *Message) HasCustomerParties() bool {
	for _, p := range m.Parties {
		if isCustomerRole(p.Role) {
			return true
		}
	}
	return false
}

// MessageDefinition returns the message definition identifier, preferring
// the application header and falling back to the Document namespace.
func (m *Message) MessageDefinition() string {
	if m.AppHeader != nil && m.AppHeader.MessageDefinition != "" {
		return m.AppHeader.MessageDefinition
	}
	if m.docDefinition != "" {
		return m.docDefinition
	}
	return string(m.Kind)
}

// MessageFamily returns the leading segment of the message definition,
// "pacs" for pacs.008.001.09.
func (m *Message) MessageFamily() string {
	def := m.MessageDefinition()
	if i := strings.Index(def, "."); i > 0 {
		return def[:i]
	}
	return def
}

// Transaction returns the first credit transfer block, or a zero value when
// the message somehow carried none.
func (m *Message) Transaction() Transaction {
	if len(m.Transactions) == 0 {
		return Transaction{}
	}
	return m.Transactions[0]
}
