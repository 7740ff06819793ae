package screen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/model"
)

const headerlessFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08">
  <FIToFICstmrCdtTrf>
    <GrpHdr>
      <MsgId>M-1</MsgId>
      <NbOfTxs>1</NbOfTxs>
    </GrpHdr>
    <CdtTrfTxInf>
      <PmtId><EndToEndId>E2E-1</EndToEndId></PmtId>
      <IntrBkSttlmAmt Ccy="USD">10.00</IntrBkSttlmAmt>
      <Dbtr><Nm>Viktor Petrov</Nm></Dbtr>
      <Cdtr><Nm>Acme GmbH</Nm></Cdtr>
    </CdtTrfTxInf>
  </FIToFICstmrCdtTrf>
</Document>`

func TestResponse_MetadataAndRequest(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{Environment: "test"})
	raw := []byte(screenFixture)

	resp, err := env.screener.Screen(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "1.0", resp.Metadata.APIVersion)
	_, err = uuid.Parse(resp.Metadata.ResponseID)
	assert.NoError(t, err)
	assert.Equal(t, "2026-08-20T11:04:00Z", resp.Metadata.CreatedAt)
	assert.Equal(t, "ISO20022 Screen Engine", resp.Metadata.SourceSystem)
	assert.Equal(t, "test", resp.Metadata.Environment)

	sum := sha256.Sum256(raw)
	assert.Equal(t, "ISO 20022", resp.Request.MessageStandard)
	assert.Equal(t, "pacs.008.001.09", resp.Request.MessageDefinition)
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.Request.IngestHash)
}

func TestResponse_CreatedAtFallsBackToRunTime(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(headerlessFixture))
	require.NoError(t, err)

	assert.Equal(t, resp.Audit.ScreeningRunAt, resp.Metadata.CreatedAt)
	assert.Equal(t, "pacs.008.001.08", resp.Request.MessageDefinition)
}

func TestResponse_SourceAndTransactionBlocks(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	appHdr, ok := resp.SourceMessage["appHdr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BANKGB2LXXX", appHdr["fromBIC"])

	assert.Equal(t, "MSG-2026-000733", resp.Transaction["Business Message Id"])
	assert.Equal(t, 74250.00, resp.Transaction["Amount"])
	assert.Equal(t, "EUR", resp.Transaction["Currency"])
}

func TestResponse_AuditBlock(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	assert.Equal(t, EngineVersion, resp.Audit.EngineVersion)
	runAt, err := time.Parse(time.RFC3339, resp.Audit.ScreeningRunAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), runAt, time.Minute)
	assert.GreaterOrEqual(t, resp.Audit.ExecutionMs, int64(0))
	assert.Equal(t, resp.Audit.ScreeningRunAt, resp.RiskSummary.Time)
}

func TestResponse_JSONShape(t *testing.T) {
	env := newScreenEnv(t, sanctionedPetrov(), Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(headerlessFixture))
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	for _, key := range []string{
		"metadata", "request", "sourceMessage", "listsUsed", "parties",
		"transaction", "decision", "riskSummary", "engine", "matches", "audit",
	} {
		assert.Contains(t, top, key)
	}

	// a headerless message still yields an object, not null
	assert.NotEqual(t, "null", string(top["sourceMessage"]))
}

func TestResponse_EmptyMatchesSerializeAsArray(t *testing.T) {
	env := newScreenEnv(t, []model.Entity{{
		ListName: "UN", ListID: "5", PrimaryName: "Omar Haddad",
	}}, Options{})

	resp, err := env.screener.Screen(context.Background(), []byte(screenFixture))
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"matches":[]`)
	assert.Contains(t, string(data), `"reasonCodes":[]`)
	assert.Contains(t, string(data), `"drivers":[]`)
}

func TestDecision_Actions(t *testing.T) {
	s := &Screener{scorer: match.NewScorer(match.DefaultPolicy())}

	low := s.decision(&match.Outcome{ResponseCode: "NONE", RiskScore: 10})
	assert.Equal(t, "Release", low.RecommendedAction)
	assert.Empty(t, low.ReasonCodes)
	assert.Empty(t, low.Explanations)

	flagged := s.decision(&match.Outcome{
		ResponseCode: "HIGH_RISK",
		RiskScore:    88,
		Flagged:      true,
		Matches: []*match.Match{
			{SanctionsList: "UK", FinalScore: 88},
			{SanctionsList: "EU", FinalScore: 70},
			{SanctionsList: "UK", FinalScore: 60},
		},
	})
	assert.Equal(t, "Review", flagged.RecommendedAction)
	assert.Equal(t, []string{"SANCTIONS_MATCH"}, flagged.ReasonCodes)
	require.Len(t, flagged.Explanations, 1)
	assert.Equal(t, "Name match at or above threshold on EU, UK.", flagged.Explanations[0])
}

func TestMatchedLists(t *testing.T) {
	lists := matchedLists([]*match.Match{
		{SanctionsList: "UN"},
		{SanctionsList: "OFAC_SDN"},
		{SanctionsList: "UN"},
		{SanctionsList: ""},
	})
	assert.Equal(t, []string{"OFAC_SDN", "UN"}, lists)
}
