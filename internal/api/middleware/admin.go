package middleware

import (
	"crypto/subtle"
	"net/http"

	"paperjet/internal/pkg/errors"
)

// AdminMiddleware guards operator endpoints with a static shared token.
// The expected value is injected at construction from configuration, a
// separate and deliberately simpler trust boundary than API keys.
type AdminMiddleware struct {
	token []byte
}

func NewAdminMiddleware(token string) *AdminMiddleware {
	return &AdminMiddleware{token: []byte(token)}
}

func (m *AdminMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("X-Admin-Token")
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), m.token) != 1 {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid admin token.", nil)
			return
		}
		next(w, r)
	}
}
