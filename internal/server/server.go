// Package server exposes the screening engine over HTTP. The screen
// endpoints accept ISO 20022 XML wrapped in JSON or as a multipart upload;
// the remaining routes are operational (readiness, warm status, list
// refresh).
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/screen"
	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

// Handler owns the HTTP surface. One instance serves all routes.
type Handler struct {
	screener *screen.Screener
	engine   *watchlist.Engine
	store    *index.Store
	maxBytes int64
	adminKey string
}

// Options carries the HTTP-facing knobs.
type Options struct {
	// MaxRequestMB caps request bodies, in MiB. Zero means 5.
	MaxRequestMB int

	// AdminKey guards POST /refresh-lists when non-empty.
	AdminKey string
}

// New creates the API handler.
func New(screener *screen.Screener, engine *watchlist.Engine, store *index.Store, opts Options) *Handler {
	maxMB := opts.MaxRequestMB
	if maxMB <= 0 {
		maxMB = 5
	}
	return &Handler{
		screener: screener,
		engine:   engine,
		store:    store,
		maxBytes: int64(maxMB) << 20,
		adminKey: opts.AdminKey,
	}
}

// Router assembles the chi router. CORS is open so the bundled viewer can
// call the API from another origin; X-Response-Code is exposed so browser
// clients can read the screening verdict without parsing the body.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Key"},
		ExposedHeaders: []string{"X-Response-Code"},
	}))
	r.Use(requestLog)
	r.Use(recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/warm-status", h.handleWarmStatus)
	r.Post("/screen", h.handleScreen)
	r.Post("/screen/file", h.handleScreenFile)
	r.Post("/refresh-lists", h.handleRefresh)

	return r
}

// requestLog emits one access line per request.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// recoverer converts a handler panic into a 500 so one poisoned message
// cannot take the process down.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zap.L().Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				writeDetail(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
