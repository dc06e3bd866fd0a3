package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Verifier compares presented keys against the configured one.
type Verifier struct {
	mode   string
	header string
	key    string
}

// NewVerifier builds a Verifier. header is the HTTP header and gRPC metadata
// name carrying the key.
func NewVerifier(mode, header, key string) *Verifier {
	return &Verifier{mode: mode, header: strings.ToLower(header), key: key}
}

// Enabled reports whether keys are enforced at all.
func (v *Verifier) Enabled() bool {
	return v.mode == "apikey" && v.key != ""
}

// Header returns the lowercase header name.
func (v *Verifier) Header() string { return v.header }

// Check reports whether presented matches the configured key.
func (v *Verifier) Check(presented string) bool {
	if !v.Enabled() {
		return true
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(v.key)) == 1
}

// Middleware rejects HTTP requests without a valid key. Browsers cannot set
// headers on a WebSocket upgrade, so the key is also accepted in the
// "api_key" query parameter.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(v.header)
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if !v.Check(key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
