// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authMiddleware enforces bearer-token authentication. With no token
// configured the middleware is fail-closed: access is denied unless
// anonymous auth was explicitly enabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			if s.cfg.AuthAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			s.logger.Error().
				Str("event", "auth.fail_closed").
				Msg("PISENTRY_API_TOKEN not set and anonymous auth disabled, denying access")
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		reqToken := extractToken(r)
		if reqToken == "" {
			s.logger.Warn().
				Str("event", "auth.missing_token").
				Str("remote", r.RemoteAddr).
				Msg("authorization header missing")
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison to prevent timing attacks.
		if subtle.ConstantTimeCompare([]byte(reqToken), []byte(s.cfg.APIToken)) != 1 {
			s.logger.Warn().
				Str("event", "auth.invalid_token").
				Str("remote", r.RemoteAddr).
				Msg("invalid api token")
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the bearer token from the Authorization header, with a
// query parameter fallback for the MJPEG feed (browsers cannot set headers
// on <img> sources).
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
