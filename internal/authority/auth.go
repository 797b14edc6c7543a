package authority

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// requireKey gates mutating endpoints behind the configured access key.
// With no hash configured, writes stay open (single-trusted-network
// deployments). Reads and the push channel are never gated: a viewer that
// cannot authenticate still sees the shared scene.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AccessKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		key, ok := bearerToken(r)
		if !ok || bcrypt.CompareHashAndPassword([]byte(s.cfg.AccessKeyHash), []byte(key)) != nil {
			http.Error(w, "invalid access key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
