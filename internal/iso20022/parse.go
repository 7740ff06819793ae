package iso20022

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
)

// Parse extracts a payment message from raw XML, retrying once on a
// sanitized copy when the first pass fails. Uploaded files regularly carry
// a BOM or stray control bytes.
func Parse(data []byte) (*Message, error) {
	if msg, err := parseDocument(data); err == nil {
		return msg, nil
	}
	return parseDocument(fetcher.SanitizeXML(data))
}

// parseDocument walks the token stream looking for the application header
// and a recognised payment block by local name, so envelopes and schema
// versions the decoder has never seen still parse.
func parseDocument(data []byte) (*Message, error) {
	dec := fetcher.NewXMLDecoder(bytes.NewReader(data))

	var (
		hdr    *appHdrXML
		pacs   *pacsDocXML
		pain   *painDocXML
		docDef string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "iso20022: read message")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "AppHdr":
			var h appHdrXML
			if err := dec.DecodeElement(&h, &se); err != nil {
				return nil, eris.Wrap(err, "iso20022: decode application header")
			}
			hdr = &h
		case "Document":
			if docDef == "" {
				docDef = definitionFromNamespace(se.Name.Space)
			}
		case "FIToFICstmrCdtTrf":
			var d pacsDocXML
			if err := dec.DecodeElement(&d, &se); err != nil {
				return nil, eris.Wrap(err, "iso20022: decode pacs.008 block")
			}
			pacs = &d
		case "CstmrCdtTrfInitn":
			var d painDocXML
			if err := dec.DecodeElement(&d, &se); err != nil {
				return nil, eris.Wrap(err, "iso20022: decode pain.001 block")
			}
			pain = &d
		}
	}

	switch {
	case pacs != nil:
		return assemblePacs(hdr, docDef, pacs), nil
	case pain != nil:
		return assemblePain(hdr, docDef, pain), nil
	}
	return nil, eris.New("iso20022: no pacs.008 or pain.001 payment block found")
}

// definitionFromNamespace pulls "pacs.008.001.09" out of
// "urn:iso:std:iso:20022:tech:xsd:pacs.008.001.09".
func definitionFromNamespace(ns string) string {
	const marker = ":xsd:"
	if i := strings.LastIndex(ns, marker); i >= 0 {
		return ns[i+len(marker):]
	}
	return ""
}

// --- wire shapes ---------------------------------------------------------

type appHdrXML struct {
	Fr        headerPartyXML `xml:"Fr"`
	To        headerPartyXML `xml:"To"`
	BizMsgIdr string         `xml:"BizMsgIdr"`
	MsgDefIdr string         `xml:"MsgDefIdr"`
	BizSvc    string         `xml:"BizSvc"`
	CreDt     string         `xml:"CreDt"`
}

type headerPartyXML struct {
	FIID struct {
		FinInstnID struct {
			BICFI string `xml:"BICFI"`
		} `xml:"FinInstnId"`
	} `xml:"FIId"`
	OrgID struct {
		ID struct {
			OrgID struct {
				AnyBIC string `xml:"AnyBIC"`
			} `xml:"OrgId"`
		} `xml:"Id"`
	} `xml:"OrgId"`
}

func (h headerPartyXML) bic() string {
	return coalesce(h.FIID.FinInstnID.BICFI, h.OrgID.ID.OrgID.AnyBIC)
}

type pacsDocXML struct {
	GrpHdr      pacsGrpHdrXML `xml:"GrpHdr"`
	CdtTrfTxInf []pacsTxXML   `xml:"CdtTrfTxInf"`
}

type pacsGrpHdrXML struct {
	MsgID    string `xml:"MsgId"`
	CreDtTm  string `xml:"CreDtTm"`
	NbOfTxs  string `xml:"NbOfTxs"`
	SttlmInf struct {
		SttlmMtd string `xml:"SttlmMtd"`
	} `xml:"SttlmInf"`
	InstgAgt agentXML `xml:"InstgAgt"`
	InstdAgt agentXML `xml:"InstdAgt"`
}

type pacsTxXML struct {
	PmtID          pmtIDXML  `xml:"PmtId"`
	PmtTpInf       pmtTpXML  `xml:"PmtTpInf"`
	IntrBkSttlmAmt amountXML `xml:"IntrBkSttlmAmt"`
	IntrBkSttlmDt  string    `xml:"IntrBkSttlmDt"`
	InstdAmt       amountXML `xml:"InstdAmt"`
	ChrgBr         string    `xml:"ChrgBr"`

	InitgPty   partyXML   `xml:"InitgPty"`
	Dbtr       partyXML   `xml:"Dbtr"`
	DbtrAcct   accountXML `xml:"DbtrAcct"`
	DbtrAgt    agentXML   `xml:"DbtrAgt"`
	UltmtDbtr  partyXML   `xml:"UltmtDbtr"`
	IntrmyAgt1 agentXML   `xml:"IntrmyAgt1"`
	IntrmyAgt2 agentXML   `xml:"IntrmyAgt2"`
	IntrmyAgt3 agentXML   `xml:"IntrmyAgt3"`
	CdtrAgt    agentXML   `xml:"CdtrAgt"`
	Cdtr       partyXML   `xml:"Cdtr"`
	CdtrAcct   accountXML `xml:"CdtrAcct"`
	UltmtCdtr  partyXML   `xml:"UltmtCdtr"`
	InstgAgt   agentXML   `xml:"InstgAgt"`
	InstdAgt   agentXML   `xml:"InstdAgt"`

	Purp   codeXML `xml:"Purp"`
	RmtInf struct {
		Ustrd []string `xml:"Ustrd"`
	} `xml:"RmtInf"`
}

type painDocXML struct {
	GrpHdr painGrpHdrXML `xml:"GrpHdr"`
	PmtInf []painPmtXML  `xml:"PmtInf"`
}

type painGrpHdrXML struct {
	MsgID    string   `xml:"MsgId"`
	CreDtTm  string   `xml:"CreDtTm"`
	NbOfTxs  string   `xml:"NbOfTxs"`
	InitgPty partyXML `xml:"InitgPty"`
	FwdgAgt  agentXML `xml:"FwdgAgt"`
}

type painPmtXML struct {
	PmtTpInf    pmtTpXML `xml:"PmtTpInf"`
	ReqdExctnDt struct {
		Dt   string `xml:"Dt"`
		DtTm string `xml:"DtTm"`
		Text string `xml:",chardata"`
	} `xml:"ReqdExctnDt"`
	Dbtr        partyXML    `xml:"Dbtr"`
	DbtrAcct    accountXML  `xml:"DbtrAcct"`
	DbtrAgt     agentXML    `xml:"DbtrAgt"`
	UltmtDbtr   partyXML    `xml:"UltmtDbtr"`
	ChrgBr      string      `xml:"ChrgBr"`
	CdtTrfTxInf []painTxXML `xml:"CdtTrfTxInf"`
}

type painTxXML struct {
	PmtID    pmtIDXML `xml:"PmtId"`
	PmtTpInf pmtTpXML `xml:"PmtTpInf"`
	Amt      struct {
		InstdAmt amountXML `xml:"InstdAmt"`
		EqvtAmt  struct {
			Amt amountXML `xml:"Amt"`
		} `xml:"EqvtAmt"`
	} `xml:"Amt"`
	ChrgBr     string     `xml:"ChrgBr"`
	UltmtDbtr  partyXML   `xml:"UltmtDbtr"`
	IntrmyAgt1 agentXML   `xml:"IntrmyAgt1"`
	CdtrAgt    agentXML   `xml:"CdtrAgt"`
	Cdtr       partyXML   `xml:"Cdtr"`
	CdtrAcct   accountXML `xml:"CdtrAcct"`
	UltmtCdtr  partyXML   `xml:"UltmtCdtr"`
	Purp       codeXML    `xml:"Purp"`
	RmtInf     struct {
		Ustrd []string `xml:"Ustrd"`
	} `xml:"RmtInf"`
}

type pmtIDXML struct {
	InstrID    string `xml:"InstrId"`
	EndToEndID string `xml:"EndToEndId"`
	TxID       string `xml:"TxId"`
	UETR       string `xml:"UETR"`
}

type pmtTpXML struct {
	SvcLvl    codeXML `xml:"SvcLvl"`
	LclInstrm codeXML `xml:"LclInstrm"`
	CtgyPurp  codeXML `xml:"CtgyPurp"`
}

type codeXML struct {
	Cd    string `xml:"Cd"`
	Prtry string `xml:"Prtry"`
}

func (c codeXML) value() string { return coalesce(c.Cd, c.Prtry) }

type amountXML struct {
	Value string `xml:",chardata"`
	Ccy   string `xml:"Ccy,attr"`
}

type partyXML struct {
	Nm        string       `xml:"Nm"`
	PstlAdr   postalAdrXML `xml:"PstlAdr"`
	ID        partyIDXML   `xml:"Id"`
	CtryOfRes string       `xml:"CtryOfRes"`
	CtctDtls  ctctDtlsXML  `xml:"CtctDtls"`
}

type postalAdrXML struct {
	StrtNm      string   `xml:"StrtNm"`
	BldgNb      string   `xml:"BldgNb"`
	PstCd       string   `xml:"PstCd"`
	TwnNm       string   `xml:"TwnNm"`
	TwnLctnNm   string   `xml:"TwnLctnNm"`
	CtrySubDvsn string   `xml:"CtrySubDvsn"`
	Ctry        string   `xml:"Ctry"`
	AdrLine     []string `xml:"AdrLine"`
}

type partyIDXML struct {
	OrgID struct {
		AnyBIC string         `xml:"AnyBIC"`
		LEI    string         `xml:"LEI"`
		Othr   []genericIDXML `xml:"Othr"`
	} `xml:"OrgId"`
	PrvtID struct {
		DtAndPlcOfBirth struct {
			BirthDt     string `xml:"BirthDt"`
			CityOfBirth string `xml:"CityOfBirth"`
			CtryOfBirth string `xml:"CtryOfBirth"`
		} `xml:"DtAndPlcOfBirth"`
		Othr []genericIDXML `xml:"Othr"`
	} `xml:"PrvtId"`
}

type genericIDXML struct {
	ID      string `xml:"Id"`
	SchmeNm struct {
		Cd    string `xml:"Cd"`
		Prtry string `xml:"Prtry"`
	} `xml:"SchmeNm"`
	Issr string `xml:"Issr"`
}

// label formats the identifier with its scheme or issuer for display.
func (g genericIDXML) label() string {
	id := strings.TrimSpace(g.ID)
	if id == "" {
		return ""
	}
	if tag := coalesce(g.SchmeNm.Cd, g.SchmeNm.Prtry, g.Issr); tag != "" {
		return id + " (" + tag + ")"
	}
	return id
}

type ctctDtlsXML struct {
	PhneNb    string `xml:"PhneNb"`
	MobNb     string `xml:"MobNb"`
	FaxNb     string `xml:"FaxNb"`
	EmailAdr  string `xml:"EmailAdr"`
	EmailPurp string `xml:"EmailPurp"`
	URLAdr    string `xml:"URLAdr"`
	JbTitl    string `xml:"JbTitl"`
	Rspnsblty string `xml:"Rspnsblty"`
	Dept      string `xml:"Dept"`
	Othr      []struct {
		ChanlTp string `xml:"ChanlTp"`
		ID      string `xml:"Id"`
	} `xml:"Othr"`
	PrefrdMtd string `xml:"PrefrdMtd"`
}

type accountXML struct {
	ID struct {
		IBAN string       `xml:"IBAN"`
		Othr genericIDXML `xml:"Othr"`
	} `xml:"Id"`
	Ccy string `xml:"Ccy"`
	Nm  string `xml:"Nm"`
}

type agentXML struct {
	FinInstnID struct {
		BICFI       string `xml:"BICFI"`
		ClrSysMmbID struct {
			ClrSysID codeXML `xml:"ClrSysId"`
			MmbID    string  `xml:"MmbId"`
		} `xml:"ClrSysMmbId"`
		LEI     string       `xml:"LEI"`
		Nm      string       `xml:"Nm"`
		PstlAdr postalAdrXML `xml:"PstlAdr"`
		Othr    genericIDXML `xml:"Othr"`
	} `xml:"FinInstnId"`
	BrnchID struct {
		ID      string       `xml:"Id"`
		LEI     string       `xml:"LEI"`
		Nm      string       `xml:"Nm"`
		PstlAdr postalAdrXML `xml:"PstlAdr"`
	} `xml:"BrnchId"`
}

// --- assembly ------------------------------------------------------------

func assemblePacs(hdr *appHdrXML, docDef string, doc *pacsDocXML) *Message {
	m := &Message{Kind: KindPacs008, docDefinition: docDef}
	if hdr != nil {
		m.AppHeader = convertAppHdr(*hdr)
	}
	m.GroupHeader = GroupHeader{
		MessageID:            clean(doc.GrpHdr.MsgID),
		CreatedAt:            clean(doc.GrpHdr.CreDtTm),
		NumberOfTransactions: atoiSafe(doc.GrpHdr.NbOfTxs),
		SettlementMethod:     clean(doc.GrpHdr.SttlmInf.SttlmMtd),
		InstructingAgentBIC:  clean(doc.GrpHdr.InstgAgt.FinInstnID.BICFI),
		InstructedAgentBIC:   clean(doc.GrpHdr.InstdAgt.FinInstnID.BICFI),
	}

	col := newPartyCollector()
	for _, t := range doc.CdtTrfTxInf {
		m.Transactions = append(m.Transactions, pacsTransaction(t))

		col.add(customerParty(RoleInitiatingParty, t.InitgPty, accountXML{}))
		col.add(customerParty(RoleDebtor, t.Dbtr, t.DbtrAcct))
		col.add(customerParty(RoleUltimateDebtor, t.UltmtDbtr, accountXML{}))
		col.add(agentParty(RoleDebtorAgent, t.DbtrAgt))
		col.add(agentParty("IntermediaryAgent1", t.IntrmyAgt1))
		col.add(agentParty("IntermediaryAgent2", t.IntrmyAgt2))
		col.add(agentParty("IntermediaryAgent3", t.IntrmyAgt3))
		col.add(agentParty(RoleCreditorAgent, t.CdtrAgt))
		col.add(customerParty(RoleCreditor, t.Cdtr, t.CdtrAcct))
		col.add(customerParty(RoleUltimateCreditor, t.UltmtCdtr, accountXML{}))
		col.add(agentParty(RoleInstructingAgent, t.InstgAgt))
		col.add(agentParty(RoleInstructedAgent, t.InstdAgt))
	}
	col.add(agentParty(RoleInstructingAgent, doc.GrpHdr.InstgAgt))
	col.add(agentParty(RoleInstructedAgent, doc.GrpHdr.InstdAgt))
	addHeaderParties(col, m.AppHeader)

	m.Parties = col.out
	return m
}

func pacsTransaction(t pacsTxXML) Transaction {
	amt := t.IntrBkSttlmAmt
	if clean(amt.Value) == "" {
		amt = t.InstdAmt
	}
	return Transaction{
		InstructionID:   clean(t.PmtID.InstrID),
		EndToEndID:      clean(t.PmtID.EndToEndID),
		TxID:            clean(t.PmtID.TxID),
		UETR:            clean(t.PmtID.UETR),
		ServiceLevel:    t.PmtTpInf.SvcLvl.value(),
		LocalInstrument: t.PmtTpInf.LclInstrm.value(),
		CategoryPurpose: t.PmtTpInf.CtgyPurp.value(),
		Amount:          clean(amt.Value),
		Currency:        clean(amt.Ccy),
		SettlementDate:  clean(t.IntrBkSttlmDt),
		ChargeBearer:    clean(t.ChrgBr),
		PurposeCode:     t.Purp.value(),
		Remittance:      cleanAll(t.RmtInf.Ustrd),
	}
}

func assemblePain(hdr *appHdrXML, docDef string, doc *painDocXML) *Message {
	m := &Message{Kind: KindPain001, docDefinition: docDef}
	if hdr != nil {
		m.AppHeader = convertAppHdr(*hdr)
	}
	m.GroupHeader = GroupHeader{
		MessageID:            clean(doc.GrpHdr.MsgID),
		CreatedAt:            clean(doc.GrpHdr.CreDtTm),
		NumberOfTransactions: atoiSafe(doc.GrpHdr.NbOfTxs),
	}

	col := newPartyCollector()
	col.add(customerParty(RoleInitiatingParty, doc.GrpHdr.InitgPty, accountXML{}))
	col.add(agentParty(RoleForwardingAgent, doc.GrpHdr.FwdgAgt))
	for _, pi := range doc.PmtInf {
		col.add(customerParty(RoleDebtor, pi.Dbtr, pi.DbtrAcct))
		col.add(customerParty(RoleUltimateDebtor, pi.UltmtDbtr, accountXML{}))
		col.add(agentParty(RoleDebtorAgent, pi.DbtrAgt))
		for _, t := range pi.CdtTrfTxInf {
			m.Transactions = append(m.Transactions, painTransaction(pi, t))

			col.add(customerParty(RoleUltimateDebtor, t.UltmtDbtr, accountXML{}))
			col.add(agentParty("IntermediaryAgent1", t.IntrmyAgt1))
			col.add(agentParty(RoleCreditorAgent, t.CdtrAgt))
			col.add(customerParty(RoleCreditor, t.Cdtr, t.CdtrAcct))
			col.add(customerParty(RoleUltimateCreditor, t.UltmtCdtr, accountXML{}))
		}
	}
	addHeaderParties(col, m.AppHeader)

	m.Parties = col.out
	return m
}

func painTransaction(pi painPmtXML, t painTxXML) Transaction {
	amt := t.Amt.InstdAmt
	if clean(amt.Value) == "" {
		amt = t.Amt.EqvtAmt.Amt
	}
	tp := t.PmtTpInf
	if tp.SvcLvl.value() == "" && tp.LclInstrm.value() == "" && tp.CtgyPurp.value() == "" {
		tp = pi.PmtTpInf
	}
	return Transaction{
		InstructionID:      clean(t.PmtID.InstrID),
		EndToEndID:         clean(t.PmtID.EndToEndID),
		TxID:               clean(t.PmtID.TxID),
		UETR:               clean(t.PmtID.UETR),
		ServiceLevel:       tp.SvcLvl.value(),
		LocalInstrument:    tp.LclInstrm.value(),
		CategoryPurpose:    tp.CtgyPurp.value(),
		Amount:             clean(amt.Value),
		Currency:           clean(amt.Ccy),
		RequestedExecution: coalesce(pi.ReqdExctnDt.Dt, pi.ReqdExctnDt.DtTm, pi.ReqdExctnDt.Text),
		ChargeBearer:       coalesce(t.ChrgBr, pi.ChrgBr),
		PurposeCode:        t.Purp.value(),
		Remittance:         cleanAll(t.RmtInf.Ustrd),
	}
}

func convertAppHdr(x appHdrXML) *AppHeader {
	return &AppHeader{
		FromBIC:           clean(x.Fr.bic()),
		ToBIC:             clean(x.To.bic()),
		BusinessMessageID: clean(x.BizMsgIdr),
		MessageDefinition: clean(x.MsgDefIdr),
		BusinessService:   clean(x.BizSvc),
		CreatedAt:         clean(x.CreDt),
	}
}

func addHeaderParties(col *partyCollector, hdr *AppHeader) {
	if hdr == nil {
		return
	}
	col.add(Party{Role: RoleSender, FinInst: FinancialInstitution{BIC: hdr.FromBIC}})
	col.add(Party{Role: RoleReceiver, FinInst: FinancialInstitution{BIC: hdr.ToBIC}})
}

// customerParty converts a PartyIdentification block plus its cash account.
func customerParty(role string, px partyXML, ax accountXML) Party {
	p := Party{
		Role:    role,
		Name:    clean(px.Nm),
		Address: convertAddress(px.PstlAdr),
		Account: Account{
			IBAN:     clean(ax.ID.IBAN),
			OtherID:  clean(ax.ID.Othr.ID),
			Currency: clean(ax.Ccy),
			Name:     clean(ax.Nm),
		},
	}

	birth := px.ID.PrvtID.DtAndPlcOfBirth
	p.Contact = Contact{
		Email:           clean(px.CtctDtls.EmailAdr),
		EmailPurpose:    clean(px.CtctDtls.EmailPurp),
		Phone:           clean(px.CtctDtls.PhneNb),
		Mobile:          clean(px.CtctDtls.MobNb),
		Fax:             clean(px.CtctDtls.FaxNb),
		URL:             clean(px.CtctDtls.URLAdr),
		JobTitle:        clean(px.CtctDtls.JbTitl),
		Responsibility:  clean(px.CtctDtls.Rspnsblty),
		Department:      clean(px.CtctDtls.Dept),
		PreferredMethod: clean(px.CtctDtls.PrefrdMtd),
		CountryOfRes:    clean(px.CtryOfRes),
		DateOfBirth:     clean(birth.BirthDt),
		PlaceOfBirth:    joinClean([]string{birth.CityOfBirth, birth.CtryOfBirth}, ", "),
	}
	if len(px.CtctDtls.Othr) > 0 {
		p.Contact.ChannelType = clean(px.CtctDtls.Othr[0].ChanlTp)
		p.Contact.ChannelID = clean(px.CtctDtls.Othr[0].ID)
	}

	p.IDs = Identifiers{
		AnyBIC: clean(px.ID.OrgID.AnyBIC),
		LEI:    clean(px.ID.OrgID.LEI),
	}
	var gen []genericIDXML
	gen = append(gen, px.ID.OrgID.Othr...)
	gen = append(gen, px.ID.PrvtID.Othr...)
	for _, g := range gen {
		id := clean(g.ID)
		if id == "" {
			continue
		}
		if p.IDs.ID == "" {
			p.IDs.ID = id
			continue
		}
		p.IDs.Other = append(p.IDs.Other, g.label())
	}
	return p
}

// agentParty converts a BranchAndFinancialInstitutionIdentification block.
func agentParty(role string, x agentXML) Party {
	fi := x.FinInstnID
	p := Party{
		Role:    role,
		Name:    clean(fi.Nm),
		Address: convertAddress(fi.PstlAdr),
		FinInst: FinancialInstitution{
			BIC:            clean(fi.BICFI),
			LEI:            clean(fi.LEI),
			Name:           clean(fi.Nm),
			ClearingSystem: fi.ClrSysMmbID.ClrSysID.value(),
			ClearingMember: clean(fi.ClrSysMmbID.MmbID),
			Branch: Branch{
				ID:      clean(x.BrnchID.ID),
				LEI:     clean(x.BrnchID.LEI),
				Name:    clean(x.BrnchID.Nm),
				Address: convertAddress(x.BrnchID.PstlAdr),
			},
		},
	}
	if id := clean(fi.Othr.ID); id != "" {
		p.IDs.ID = id
	}
	return p
}

func convertAddress(x postalAdrXML) Address {
	return Address{
		Street:         clean(x.StrtNm),
		BuildingNumber: clean(x.BldgNb),
		PostalCode:     clean(x.PstCd),
		City:           clean(x.TwnNm),
		TownLocation:   clean(x.TwnLctnNm),
		State:          clean(x.CtrySubDvsn),
		Country:        clean(x.Ctry),
		Lines:          cleanAll(x.AdrLine),
	}
}

// partyCollector accumulates parties in extraction order, skipping empty
// blocks and exact repeats across transactions.
type partyCollector struct {
	seen map[string]bool
	out  []Party
}

func newPartyCollector() *partyCollector {
	return &partyCollector{seen: make(map[string]bool)}
}

func (c *partyCollector) add(p Party) {
	if p.empty() {
		return
	}
	key := strings.ToUpper(strings.Join([]string{p.Role, p.DisplayName(), p.Account.IBAN, p.BIC()}, "|"))
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.out = append(c.out, p)
}

// --- small helpers -------------------------------------------------------

func clean(s string) string { return strings.TrimSpace(s) }

func cleanAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinClean(values []string, sep string) string {
	return strings.Join(cleanAll(values), sep)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
