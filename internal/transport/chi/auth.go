package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths are served without credentials so probes and scrapers need no key.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// APIKeyAuth accepts a key from "Authorization: Bearer <key>" or from the
// X-API-Key header. Empty entries in keys are ignored; with no keys left the
// middleware is a no-op.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range keys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			key, msg := credentials(r)
			if msg == "" && !matchAny(digests, key) {
				msg = "invalid api key"
			}
			if msg != "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credentials returns the presented key, or a client-facing reason when none
// was presented in a usable form.
func credentials(r *http.Request) (key, problem string) {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", "authorization header must use Bearer scheme"
	}
	return token, ""
}

// matchAny compares digests so every comparison takes the same time
// regardless of key length, and checks all keys without early exit.
func matchAny(digests [][sha256.Size]byte, key string) bool {
	d := sha256.Sum256([]byte(key))
	match := 0
	for i := range digests {
		match |= subtle.ConstantTimeCompare(digests[i][:], d[:])
	}
	return match == 1
}
