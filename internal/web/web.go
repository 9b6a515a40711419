package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"untiswidget/internal/config"
	"untiswidget/internal/ics"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/render"
	"untiswidget/internal/widget"
)

const (
	keyResult  = "result"
	keyFailure = "failure"
	keyAPI     = "api/widget"
	keyICS     = "timetable.ics"

	// responseTTL bounds how long an encoded response is reused.
	responseTTL = 30 * time.Second
)

var errNoData = errors.New("no render pass completed yet")

// failure is the last failed pass.
type failure struct {
	err error
	at  time.Time
}

// Server exposes the latest render pass over HTTP.
type Server struct {
	settings    *config.Settings
	backend     render.Backend
	previewPath string
	mux         *http.ServeMux

	// cache holds the published pass and encoded responses.
	cache *gocache.Cache
	now   func() time.Time
}

// NewServer constructs a Server. previewPath is the PNG served at
// /preview.png.
func NewServer(s *config.Settings, backend render.Backend, previewPath string) *Server {
	srv := &Server{
		settings:    s,
		backend:     backend,
		previewPath: previewPath,
		mux:         http.NewServeMux(),
		cache:       gocache.New(responseTTL, 5*time.Minute),
		now:         time.Now,
	}
	srv.registerRoutes()
	return srv
}

// Publish replaces the served pass. Encoded responses are dropped.
func (s *Server) Publish(res *widget.Result) {
	s.cache.Set(keyResult, res, gocache.NoExpiration)
	s.cache.Delete(keyFailure)
	s.cache.Delete(keyAPI)
	s.cache.Delete(keyICS)
}

// PublishFailure records a failed pass. The last good result stays
// available to the JSON and calendar endpoints; /widget shows the error.
func (s *Server) PublishFailure(err error, at time.Time) {
	s.cache.Set(keyFailure, failure{err: err, at: at}, gocache.NoExpiration)
}

func (s *Server) result() (*widget.Result, bool) {
	v, ok := s.cache.Get(keyResult)
	if !ok {
		return nil, false
	}
	res, ok := v.(*widget.Result)
	return res, ok && res != nil
}

// Handler returns the http.Handler, wrapped with basic auth when set.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.settings.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.settings == nil || s.settings.BasicAuth == nil {
		return false
	}
	return s.settings.BasicAuth.Username != "" && s.settings.BasicAuth.Password != ""
}

// basicAuthMiddleware protects everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.settings.BasicAuth.Username
	password := s.settings.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="untiswidget", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on the configured address until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	hs := &http.Server{
		Addr:              s.settings.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.settings.Listen)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/widget", s.handleAPI)
	s.mux.HandleFunc("GET /widget", s.handleWidget)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /timetable.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAPI returns the latest pass as JSON. The encoding is reused for
// responseTTL or until the next Publish.
func (s *Server) handleAPI(w http.ResponseWriter, _ *http.Request) {
	if v, ok := s.cache.Get(keyAPI); ok {
		writeRaw(w, "application/json; charset=utf-8", v.([]byte))
		return
	}
	res, ok := s.result()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errNoData.Error())
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		appLog.Error("encode widget result failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode result")
		return
	}
	s.cache.SetDefault(keyAPI, body)
	writeRaw(w, "application/json; charset=utf-8", body)
}

// handleWidget renders the HTML widget, or the fallback after a failed
// pass.
func (s *Server) handleWidget(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	status := http.StatusOK

	if v, ok := s.cache.Get(keyFailure); ok {
		f := v.(failure)
		if err := s.backend.Failure(&buf, f.err, f.at); err != nil {
			appLog.Error("render failure view failed", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
	} else if res, ok := s.result(); ok {
		if err := s.backend.Widget(&buf, res); err != nil {
			appLog.Error("render widget failed", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
	} else {
		status = http.StatusServiceUnavailable
		if err := s.backend.Failure(&buf, errNoData, s.now()); err != nil {
			http.Error(w, errNoData.Error(), status)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.previewPath); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.previewPath)
}

// handleICS exports the assembled weeks as a calendar subscription.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	if v, ok := s.cache.Get(keyICS); ok {
		writeRaw(w, "text/calendar; charset=utf-8", v.([]byte))
		return
	}
	res, ok := s.result()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errNoData.Error())
		return
	}
	body := []byte(ics.Serialize(res.Week, "Timetable", res.GeneratedAt))
	s.cache.SetDefault(keyICS, body)
	writeRaw(w, "text/calendar; charset=utf-8", body)
}

func writeRaw(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
