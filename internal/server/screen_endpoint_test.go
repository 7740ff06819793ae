package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/model"
	"github.com/halcyonpay/amlscreen/internal/screen"
)

func screenBody(t *testing.T, xml string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]string{"xml": xml})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestScreen_FlagsSanctionedParty(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/screen", screenBody(t, screenXML))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "HIGH_RISK", rr.Header().Get("X-Response-Code"))

	var resp screen.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Engine.Flagged)
	assert.Equal(t, "HIGH_RISK", resp.Engine.ResponseCode)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "Viktor Petrov", resp.Matches[0].PartyName)
}

func TestScreen_CleanMessage(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, []model.Entity{{
		ListName: "UK", ListID: "7", PrimaryName: "Omar Haddad",
	}}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/screen", screenBody(t, screenXML))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "NONE", rr.Header().Get("X-Response-Code"))

	var resp screen.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Engine.Flagged)
	assert.Empty(t, resp.Matches)
}

func TestScreen_InvalidJSON(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/screen", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestScreen_UnscreenableXML(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/screen", screenBody(t, "<Document><Foo/></Document>"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no pacs.008 or pain.001 payment block")
}

func TestScreen_PayloadTooLarge(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{MaxRequestMB: 1})

	req := httptest.NewRequest(http.MethodPost, "/screen", screenBody(t, strings.Repeat("x", 1<<20)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "payload too large")
}

func TestScreenFile_FlagsSanctionedParty(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "payment.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(screenXML))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/screen/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "HIGH_RISK", rr.Header().Get("X-Response-Code"))

	var resp screen.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Engine.Flagged)
}

func TestScreenFile_MissingField(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/screen/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file field is required")
}

func TestScreenFile_PayloadTooLarge(t *testing.T) {
	env := newAPIEnv(t, downFetcher{}, sanctionedPetrov(), Options{MaxRequestMB: 1})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "payment.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(strings.Repeat("x", 1<<20)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/screen/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "payload too large")
}
