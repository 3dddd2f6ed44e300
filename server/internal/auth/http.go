package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// HTTPMiddleware wraps next with API key authentication.
//
// Requests whose path is listed in exempt (exact match) are always allowed,
// so health checks and metric scrapes keep working without a key. A missing
// or wrong key gets 401 with a JSON error body.
func HTTPMiddleware(mode, header, key string, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if !enforced(mode, key) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if !keyMatches(r.Header.Get(header), key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// enforced reports whether authentication applies. Any mode other than
// "apikey", or an unconfigured key, allows everything.
func enforced(mode, key string) bool {
	return mode == "apikey" && key != ""
}

func keyMatches(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
