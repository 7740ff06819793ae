package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

// screenRequest is the JSON wrapper accepted by POST /screen.
type screenRequest struct {
	XML string `json:"xml"`
}

// readiness is the GET /ready body. Reason is null when ready.
type readiness struct {
	Ready  bool    `json:"ready"`
	Reason *string `json:"reason"`
}

// WarmStatus is the GET /warm-status body: whether a generation has been
// committed, how big it is, and whether a refresh is running right now.
type WarmStatus struct {
	Built       bool           `json:"built"`
	Generation  int64          `json:"generation"`
	Entities    int            `json:"entities"`
	Lists       map[string]int `json:"lists"`
	LastBuiltAt string         `json:"lastBuiltAt"`
	Refreshing  bool           `json:"refreshing"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, reason := h.store.Readiness(r.Context())
	body := readiness{Ready: ready}
	if !ready {
		body.Reason = &reason
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleWarmStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := WarmStatus{
		Lists:      map[string]int{},
		Refreshing: h.engine.Refreshing(),
	}

	gen, err := h.store.Generation(ctx)
	if err != nil {
		internalError(w, err)
		return
	}
	status.Generation = gen
	status.Built = gen > 0
	if !status.Built {
		writeJSON(w, http.StatusOK, status)
		return
	}

	if status.Entities, err = h.store.EntityCount(ctx); err != nil {
		internalError(w, err)
		return
	}
	if status.Lists, err = h.store.ListCounts(ctx); err != nil {
		internalError(w, err)
		return
	}
	built, err := h.store.LastBuilt(ctx)
	if err != nil {
		internalError(w, err)
		return
	}
	if !built.IsZero() {
		status.LastBuiltAt = built.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	var req screenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.screenBytes(w, r, []byte(req.XML))
}

func (h *Handler) handleScreenFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read uploaded file")
		return
	}
	h.screenBytes(w, r, raw)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.adminKey != "" && r.Header.Get("X-Admin-Key") != h.adminKey {
		writeDetail(w, http.StatusUnauthorized, "invalid admin key")
		return
	}
	summary, err := h.engine.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, watchlist.ErrRefreshInProgress) {
			writeDetail(w, http.StatusConflict, "refresh already running")
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "rebuilt", "rows": summary.Rows})
}

// screenBytes runs one screening and writes the response. Any screening
// failure maps to 400 with the error text in detail.
func (h *Handler) screenBytes(w http.ResponseWriter, r *http.Request, raw []byte) {
	resp, err := h.screener.Screen(r.Context(), raw)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("X-Response-Code", resp.Engine.ResponseCode)
	writeJSON(w, http.StatusOK, resp)
}

// readBody reads the request body under the configured cap. Oversized
// payloads are rejected with 413 before any parsing work.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.ContentLength > h.maxBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "payload too large")
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		if isTooLarge(err) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "payload too large")
		} else {
			writeDetail(w, http.StatusBadRequest, "read request body")
		}
		return nil, false
	}
	return body, true
}

func isTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	return errors.As(err, &tooBig)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

// writeDetail writes the error envelope used by every non-200 response.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func internalError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeDetail(w, http.StatusInternalServerError, "internal error")
}
