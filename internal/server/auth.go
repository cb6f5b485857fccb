package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireSecret guards a route group with a shared secret, sent either as a
// bearer token or in X-Cron-Secret. An unset secret rejects every request.
func (s *Server) requireSecret(secret func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := secret()
			if want == "" || !secretMatches(presentedSecret(r), want) {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.Header.Get("X-Cron-Secret")
}

func secretMatches(got, want string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
