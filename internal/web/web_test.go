package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untiswidget/internal/config"
	"untiswidget/internal/model"
	"untiswidget/internal/render"
	"untiswidget/internal/widget"
)

func newTestServer(t *testing.T, s *config.Settings) (*Server, string) {
	t.Helper()
	if s == nil {
		s = config.DefaultSettings()
	}
	backend, err := render.NewHTML(time.UTC, 0, 0)
	require.NoError(t, err)
	preview := filepath.Join(t.TempDir(), "widget.png")
	return NewServer(s, backend, preview), preview
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func sampleResult() *widget.Result {
	from := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	l := model.Lesson{
		ID: 1, From: from, To: from.Add(45 * time.Minute), Duration: 1,
		Subject: &model.Stateful[model.Subject]{Entity: model.Subject{Name: "M"}},
		State:   model.StateNormal,
	}
	return &widget.Result{
		GeneratedAt: from.Add(-time.Hour),
		Lessons:     []model.Lesson{l},
		Week:        model.Week{"2024-05-10": {l}},
		RefreshAt:   from,
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := get(t, srv.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNoDataYet(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/widget").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/timetable.ics").Code)

	rec := get(t, h, "/widget")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), errNoData.Error())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/preview.png").Code)
}

func TestPublishServesResult(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	srv.Publish(sampleResult())

	rec := get(t, h, "/api/widget")
	require.Equal(t, http.StatusOK, rec.Code)
	var got widget.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Lessons, 1)
	assert.Equal(t, "M", got.Lessons[0].SubjectName())

	rec = get(t, h, "/widget")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "08:00-08:45")

	rec = get(t, h, "/timetable.ics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR"))
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestPublishInvalidatesEncodedResponse(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	srv.Publish(sampleResult())
	first := get(t, h, "/api/widget").Body.String()

	next := sampleResult()
	next.Lessons = nil
	srv.Publish(next)
	second := get(t, h, "/api/widget").Body.String()
	assert.NotEqual(t, first, second)
}

func TestFailureShowsFallback(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	srv.Publish(sampleResult())
	srv.PublishFailure(errors.New("untis: unauthorized"), time.Now())

	rec := get(t, h, "/widget")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "untis: unauthorized")
	// The JSON view keeps the last good pass.
	assert.Equal(t, http.StatusOK, get(t, h, "/api/widget").Code)

	srv.Publish(sampleResult())
	assert.NotContains(t, get(t, h, "/widget").Body.String(), "unauthorized")
}

func TestPreviewServesFile(t *testing.T) {
	srv, preview := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(preview, []byte("\x89PNG"), 0o644))
	rec := get(t, srv.Handler(), "/preview.png")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s := config.DefaultSettings()
	s.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	srv, _ := newTestServer(t, s)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/widget").Code)

	req := httptest.NewRequest(http.MethodGet, "/widget", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
