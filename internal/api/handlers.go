// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/ManuGH/pisentry/internal/camera"
	"github.com/ManuGH/pisentry/internal/fsutil"
	"github.com/ManuGH/pisentry/internal/store"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	if !s.cam.StartStream(r.Context()) {
		respondError(w, http.StatusInternalServerError, "failed to start stream")
		return
	}
	respondSuccess(w, "stream started")
}

func (s *Server) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	if !s.cam.StopStream(r.Context()) {
		respondError(w, http.StatusConflict, "stream was not running")
		return
	}
	respondSuccess(w, "stream stopped")
}

func (s *Server) handleStreamStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"active": s.cam.StreamStatus()})
}

// handleVideoFeed streams multipart MJPEG parts produced by the coordinator.
// The connection stays open until the stream is stopped, the client
// disconnects or the device errors.
func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	if !s.cam.StreamStatus() {
		respondError(w, http.StatusServiceUnavailable, "stream inactive")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+camera.Boundary)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for part := range s.cam.Frames(r.Context()) {
		if _, err := w.Write(part); err != nil {
			// Client went away; the iterator sees the broken yield and
			// winds the stream state down.
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := store.Query{
		SortBy: r.URL.Query().Get("sort"),
		Order:  r.URL.Query().Get("order"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Offset = n
		}
	}

	events, err := s.events.ListEvents(r.Context(), q)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event", "api.list_events_failed").
			Msg("could not list video events")
		respondError(w, http.StatusInternalServerError, "could not list events")
		return
	}
	if events == nil {
		events = []store.VideoEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// serveMedia returns a handler that serves files from root, refusing any
// request that escapes it. http.ServeFile handles range requests so videos
// seek in the browser.
func (s *Server) serveMedia(root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		path, err := fsutil.ConfineRelPath(root, name)
		if err != nil {
			if os.IsNotExist(err) {
				respondError(w, http.StatusNotFound, "file not found")
				return
			}
			mediaDeniedTotal.Inc()
			s.logger.Warn().
				Err(err).
				Str("event", "api.media_denied").
				Str("name", name).
				Str("remote", r.RemoteAddr).
				Msg("refused media request")
			respondError(w, http.StatusForbidden, "access denied")
			return
		}

		http.ServeFile(w, r, path)
	}
}
