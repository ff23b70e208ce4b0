// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/pisentry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCam struct {
	active   bool
	startErr bool
	frames   [][]byte
}

func (f *fakeCam) StartStream(_ context.Context) bool {
	if f.startErr {
		return false
	}
	f.active = true
	return true
}

func (f *fakeCam) StopStream(_ context.Context) bool {
	if !f.active {
		return false
	}
	f.active = false
	return true
}

func (f *fakeCam) StreamStatus() bool { return f.active }

func (f *fakeCam) Frames(_ context.Context) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, p := range f.frames {
			if !yield(p) {
				return
			}
		}
	}
}

type fakeLister struct {
	lastQuery store.Query
	events    []store.VideoEvent
	err       error
}

func (f *fakeLister) ListEvents(_ context.Context, q store.Query) ([]store.VideoEvent, error) {
	f.lastQuery = q
	return f.events, f.err
}

func testServer(t *testing.T, cfg Config, cam *fakeCam, lister *fakeLister) http.Handler {
	t.Helper()
	if cam == nil {
		cam = &fakeCam{}
	}
	if lister == nil {
		lister = &fakeLister{}
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 100
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.VideosDir == "" {
		cfg.VideosDir = t.TempDir()
	}
	if cfg.ThumbnailsDir == "" {
		cfg.ThumbnailsDir = t.TempDir()
	}
	return New(cfg, cam, lister).Routes()
}

func doRequest(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthFailClosedWithoutToken(t *testing.T) {
	h := testServer(t, Config{}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/stream/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAnonymousExplicitlyEnabled(t *testing.T) {
	h := testServer(t, Config{AuthAnonymous: true}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/stream/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthBearerToken(t *testing.T) {
	h := testServer(t, Config{APIToken: "secret"}, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodGet, "/api/v1/stream/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodGet, "/api/v1/stream/status", "wrong").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/v1/stream/status", "secret").Code)
}

func TestAuthQueryTokenForFeed(t *testing.T) {
	cam := &fakeCam{active: true, frames: [][]byte{[]byte("--frame\r\n\r\nx\r\n")}}
	h := testServer(t, Config{APIToken: "secret"}, cam, nil)

	rec := doRequest(h, http.MethodGet, "/stream/mjpeg?token=secret", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzIsPublic(t *testing.T) {
	h := testServer(t, Config{APIToken: "secret"}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsIsPublic(t *testing.T) {
	h := testServer(t, Config{APIToken: "secret"}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamStartStopStatus(t *testing.T) {
	cam := &fakeCam{}
	h := testServer(t, Config{AuthAnonymous: true}, cam, nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/stream/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "stopping an inactive stream")

	rec = doRequest(h, http.MethodPost, "/api/v1/stream/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)

	rec = doRequest(h, http.MethodGet, "/api/v1/stream/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":true}`, rec.Body.String())

	rec = doRequest(h, http.MethodPost, "/api/v1/stream/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamStartFailure(t *testing.T) {
	cam := &fakeCam{startErr: true}
	h := testServer(t, Config{AuthAnonymous: true}, cam, nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/stream/start", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListEvents(t *testing.T) {
	lister := &fakeLister{events: []store.VideoEvent{{ID: 1, EventType: "Motion Detected"}}}
	h := testServer(t, Config{AuthAnonymous: true}, nil, lister)

	rec := doRequest(h, http.MethodGet, "/api/v1/events?limit=5&offset=10&sort=id&order=asc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.Query{Limit: 5, Offset: 10, SortBy: "id", Order: "asc"}, lister.lastQuery)

	var body struct {
		Events []store.VideoEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, int64(1), body.Events[0].ID)
}

func TestListEventsEmpty(t *testing.T) {
	h := testServer(t, Config{AuthAnonymous: true}, nil, &fakeLister{})

	rec := doRequest(h, http.MethodGet, "/api/v1/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestListEventsStoreError(t *testing.T) {
	h := testServer(t, Config{AuthAnonymous: true}, nil, &fakeLister{err: errors.New("boom")})

	rec := doRequest(h, http.MethodGet, "/api/v1/events", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVideoFeedInactive(t *testing.T) {
	h := testServer(t, Config{AuthAnonymous: true}, &fakeCam{}, nil)

	rec := doRequest(h, http.MethodGet, "/stream/mjpeg", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVideoFeedStreamsParts(t *testing.T) {
	cam := &fakeCam{
		active: true,
		frames: [][]byte{
			[]byte("--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 1\r\n\r\nA\r\n"),
			[]byte("--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 1\r\n\r\nB\r\n"),
		},
	}
	h := testServer(t, Config{AuthAnonymous: true}, cam, nil)

	rec := doRequest(h, http.MethodGet, "/stream/mjpeg", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "A\r\n")
	assert.Contains(t, rec.Body.String(), "B\r\n")
}

func TestServeMedia(t *testing.T) {
	videos := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(videos, "event_a.mp4"), []byte("video-bytes"), 0o600))
	h := testServer(t, Config{AuthAnonymous: true, VideosDir: videos}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/media/videos/event_a.mp4", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video-bytes", rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/media/videos/missing.mp4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeMediaRejectsBackslash(t *testing.T) {
	videos := t.TempDir()
	h := testServer(t, Config{AuthAnonymous: true, VideosDir: videos}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/media/videos/..%5C..%5Cetc%5Cpasswd", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServeMediaRejectsSymlinkEscape(t *testing.T) {
	videos := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(videos, "link.mp4")))

	h := testServer(t, Config{AuthAnonymous: true, VideosDir: videos}, nil, nil)

	rec := doRequest(h, http.MethodGet, "/media/videos/link.mp4", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
