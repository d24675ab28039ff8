package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/chart"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/config"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/session"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/types"
)

const (
	sessionCookie = "sid"
	previewRows   = 200
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Config   *config.Config
	Fetcher  *pipeline.Fetcher
	Importer *pipeline.Importer
	Sessions *session.Store
	Renderer chart.Renderer
}

type server struct {
	Deps
	tpl *template.Template
	now func() time.Time
}

// NewServer wires the interactive UI, the JSON API and the health check.
func NewServer(d Deps) http.Handler {
	if d.Renderer == nil {
		d.Renderer = chart.NewECharts()
	}
	s := &server{Deps: d, tpl: pageTemplate(), now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /fetch", s.handleFetch)
	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("POST /api/fetch", s.handleAPIFetch)
	mux.Handle("GET /healthz", HealthHandler(d.Sessions))
	return withRequestLog(mux)
}

// HealthHandler reports liveness and the number of live sessions.
func HealthHandler(store *session.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := types.HealthResponse{Status: "ok"}
		if store != nil {
			resp.Sessions = store.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// session returns the caller's state, issuing a cookie for new sessions.
func (s *server) session(w http.ResponseWriter, r *http.Request) *session.State {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	st, created := s.Sessions.Get(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    st.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return st
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logger.RequestID(r)
		r.Header.Set(logger.RequestIDHeader, id)
		w.Header().Set(logger.RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		reqLog := logger.New().WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if rec.status >= http.StatusInternalServerError {
			reqLog.Warn("request failed")
			return
		}
		reqLog.Info("request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}
