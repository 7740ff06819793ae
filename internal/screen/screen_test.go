package screen

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/iso20022"
	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/model"
	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

const screenFixture = `<?xml version="1.0" encoding="UTF-8"?>
<BizMsgEnvlp>
  <AppHdr xmlns="urn:iso:std:iso:20022:tech:xsd:head.001.001.03">
    <Fr><FIId><FinInstnId><BICFI>BANKGB2LXXX</BICFI></FinInstnId></FIId></Fr>
    <To><FIId><FinInstnId><BICFI>BANKDEFFXXX</BICFI></FinInstnId></FIId></To>
    <BizMsgIdr>MSG-2026-000733</BizMsgIdr>
    <MsgDefIdr>pacs.008.001.09</MsgDefIdr>
    <CreDt>2026-08-20T11:04:00Z</CreDt>
  </AppHdr>
  <Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.008.001.09">
    <FIToFICstmrCdtTrf>
      <GrpHdr>
        <MsgId>INSTR-991245</MsgId>
        <CreDtTm>2026-08-20T11:03:58Z</CreDtTm>
        <NbOfTxs>1</NbOfTxs>
        <SttlmInf><SttlmMtd>INDA</SttlmMtd></SttlmInf>
      </GrpHdr>
      <CdtTrfTxInf>
        <PmtId>
          <InstrId>INSTR-1</InstrId>
          <EndToEndId>E2E-20260820-014</EndToEndId>
          <TxId>TX-8831</TxId>
        </PmtId>
        <IntrBkSttlmAmt Ccy="EUR">74250.00</IntrBkSttlmAmt>
        <IntrBkSttlmDt>2026-08-20</IntrBkSttlmDt>
        <ChrgBr>SHAR</ChrgBr>
        <Dbtr>
          <Nm>Viktor Petrov</Nm>
          <PstlAdr>
            <StrtNm>Tverskaya Ulitsa</StrtNm>
            <TwnNm>Moscow</TwnNm>
            <Ctry>RU</Ctry>
            <AdrLine>12 Tverskaya Ulitsa, Moscow</AdrLine>
          </PstlAdr>
        </Dbtr>
        <DbtrAcct><Id><IBAN>RU0204452560040702810412345678901</IBAN></Id></DbtrAcct>
        <DbtrAgt><FinInstnId><BICFI>MOSWRUMMXXX</BICFI></FinInstnId></DbtrAgt>
        <CdtrAgt><FinInstnId><BICFI>HELSFIHHXXX</BICFI></FinInstnId></CdtrAgt>
        <Cdtr>
          <Nm>Nordic Timber OY</Nm>
          <PstlAdr><TwnNm>Helsinki</TwnNm><Ctry>FI</Ctry></PstlAdr>
        </Cdtr>
        <CdtrAcct><Id><IBAN>FI2112345600000785</IBAN></Id></CdtrAcct>
      </CdtTrfTxInf>
    </FIToFICstmrCdtTrf>
  </Document>
</BizMsgEnvlp>`

// downFetcher refuses every download, forcing snapshot fallbacks.
type downFetcher struct{}

func (downFetcher) Fetch(context.Context, string) (*fetcher.Result, error) {
	return nil, errors.New("connection refused")
}

type captureAuditor struct {
	resp *Response
	err  error
}

func (c *captureAuditor) Record(_ context.Context, resp *Response) error {
	c.resp = resp
	return c.err
}

type screenEnv struct {
	screener *Screener
	store    *index.Store
	log      *watchlist.RefreshLog
}

func newScreenEnv(t *testing.T, entities []model.Entity, opts Options) *screenEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := index.Open(filepath.Join(dir, "sanctions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(entities) > 0 {
		_, err = store.Rebuild(context.Background(), entities)
		require.NoError(t, err)
	}

	log := watchlist.NewRefreshLog(filepath.Join(dir, "logs"))
	registry := watchlist.NewRegistry(nil)
	feed := watchlist.NewFeedFetcher(downFetcher{}, log, filepath.Join(dir, "snapshots"))
	engine := watchlist.NewEngine(registry, feed, store, 4, time.Second)
	scorer := match.NewScorer(match.DefaultPolicy())

	return &screenEnv{
		screener: NewScreener(store, engine, registry, log, scorer, opts),
		store:    store,
		log:      log,
	}
}

func sanctionedPetrov() []model.Entity {
	return []model.Entity{{
		ListName:    "OFAC_SDN",
		ListID:      "36090",
		PrimaryName: "Viktor Petrov",
		Country:     "Russia",
	}}
}

func TestScreen_FlagsSanctionedDebtor(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	assert.True(t, resp.Engine.Flagged)
	assert.Equal(t, "HIGH_RISK", resp.Engine.ResponseCode)
	assert.Equal(t, 88, resp.Engine.TopMatchScore)
	assert.Equal(t, "high risk", resp.Engine.TopMatchRiskLevel)
	assert.Equal(t, 88, resp.Engine.RiskScore)
	assert.Equal(t, 1, resp.Engine.MatchCounts.ByRiskLevel["high risk"])

	require.Len(t, resp.Matches, 1)
	m := resp.Matches[0]
	assert.Equal(t, "Viktor Petrov", m.PartyName)
	assert.Equal(t, "Debtor", m.Role)
	assert.Equal(t, "OFAC_SDN", m.SanctionsList)
	assert.Equal(t, "36090", m.SanctionsID)
	assert.Equal(t, 88, m.FinalScore)

	assert.Equal(t, "HIGH_RISK", resp.Decision.AutomatedStatus)
	assert.Equal(t, "Review", resp.Decision.RecommendedAction)
	assert.Equal(t, []string{"SANCTIONS_MATCH"}, resp.Decision.ReasonCodes)
	require.Len(t, resp.Decision.Explanations, 1)
	assert.Contains(t, resp.Decision.Explanations[0], "OFAC_SDN")

	assert.Equal(t, 88, resp.RiskSummary.RiskScore)
	assert.Equal(t, "high risk", resp.RiskSummary.RiskLevel)
	assert.Equal(t, []string{"Sanctions name match"}, resp.RiskSummary.Drivers)
}

func TestScreen_CleanMessageReleases(t *testing.T) {
	env := newScreenEnv(t, []model.Entity{{
		ListName: "UK", ListID: "77", PrimaryName: "Omar Haddad",
	}}, Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	assert.False(t, resp.Engine.Flagged)
	assert.Equal(t, "NONE", resp.Engine.ResponseCode)
	assert.Empty(t, resp.Matches)
	assert.Equal(t, "Release", resp.Decision.RecommendedAction)
	assert.Empty(t, resp.Decision.ReasonCodes)
	assert.Empty(t, resp.RiskSummary.Drivers)

	// every extracted party is reported even without matches
	require.Len(t, resp.Parties, 6)
	roles := make([]string, 0, len(resp.Parties))
	for _, p := range resp.Parties {
		roles = append(roles, p["Role"].(string))
	}
	assert.Equal(t, []string{"Debtor", "DebtorAgent", "CreditorAgent", "Creditor", "Sender", "Receiver"}, roles)
}

func TestScreen_ListsUsedCarryRefreshTimes(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	stamp := time.Date(2026, 8, 19, 6, 30, 0, 0, time.UTC)
	require.NoError(t, env.log.Append("ofac_sdn", stamp))

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	require.Len(t, resp.ListsUsed, 8)
	assert.Equal(t, "OFAC_SDN", resp.ListsUsed[0].Name)
	assert.Equal(t, "OFAC (United States)", resp.ListsUsed[0].Publisher)
	assert.True(t, strings.HasPrefix(resp.ListsUsed[0].SourceURL, "https://"))
	assert.Equal(t, "2026-08-19T06:30:00Z", resp.ListsUsed[0].LastRefreshedAt)

	// never-refreshed sources report an empty timestamp
	assert.Equal(t, "SECO", resp.ListsUsed[7].Name)
	assert.Empty(t, resp.ListsUsed[7].LastRefreshedAt)
}

func TestScreen_PersistsArtifacts(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	env := newScreenEnv(t, sanctionedPetrov(), Options{OutDir: outDir})

	_, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)
	second, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "latest.json"))
	require.NoError(t, err)
	var latest Response
	require.NoError(t, json.Unmarshal(data, &latest))
	assert.Equal(t, second.Metadata.ResponseID, latest.Metadata.ResponseID)

	history, err := os.ReadFile(filepath.Join(outDir, "history.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(history), "\n"), "\n")
	assert.Len(t, lines, 2)
}

func TestScreen_UnbuiltIndexTriggersRefresh(t *testing.T) {
	// no entities seeded and every download refused: the forced initial
	// refresh must surface its failure
	env := newScreenEnv(t, nil, Options{})

	_, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial refresh")
}

func TestScreen_MalformedMessage(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	_, err := env.screener.Screen(context.Background(), []byte("<Document><Foo/></Document>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pacs.008 or pain.001 payment block")
}

func TestScreen_AuditorReceivesResponse(t *testing.T) {
	auditor := &captureAuditor{}
	env := newScreenEnv(t, sanctionedPetrov(), Options{Auditor: auditor})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)
	require.NotNil(t, auditor.resp)
	assert.Equal(t, resp.Metadata.ResponseID, auditor.resp.Metadata.ResponseID)
}

func TestScreen_AuditFailureDoesNotFailScreening(t *testing.T) {
	auditor := &captureAuditor{err: errors.New("connection refused")}
	env := newScreenEnv(t, sanctionedPetrov(), Options{Auditor: auditor})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)
	assert.True(t, resp.Engine.Flagged)
}

func TestBuildQueries(t *testing.T) {
	msg, err := iso20022.Parse([]byte(screenFixture))
	require.NoError(t, err)

	queries := buildQueries(msg)
	assert.Contains(t, queries, "Viktor Petrov")
	assert.Contains(t, queries, "Nordic Timber OY")
	assert.Contains(t, queries, "12 Tverskaya Ulitsa, Moscow")
	// named parties present: transaction references stay out
	assert.NotContains(t, queries, "E2E-20260820-014")
}

func TestBuildQueries_FallsBackToTransactionRefs(t *testing.T) {
	msg := &iso20022.Message{
		Kind: iso20022.KindPacs008,
		Transactions: []iso20022.Transaction{{
			InstructionID: "INSTR-1",
			EndToEndID:    "E2E-44",
			TxID:          "TX-9",
		}},
	}

	assert.Equal(t, []string{"INSTR-1", "E2E-44", "TX-9"}, buildQueries(msg))
}

func TestScreenInput_MapsPartyFields(t *testing.T) {
	msg, err := iso20022.Parse([]byte(screenFixture))
	require.NoError(t, err)
	require.NotEmpty(t, msg.Parties)

	in := screenInput(&msg.Parties[0], 0)
	assert.Equal(t, "Debtor", in.Role)
	assert.Equal(t, "Viktor Petrov", in.Name)
	assert.Equal(t, "Tverskaya Ulitsa", in.Street)
	assert.Equal(t, "Moscow", in.City)
	assert.Equal(t, "RU", in.Country)
	assert.Equal(t, "RU0204452560040702810412345678901", in.IBAN)
}
