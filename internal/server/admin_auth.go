package server

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/huntgate/internal/hunt"
)

// adminKeyMiddleware compares the Bearer key against a bcrypt hash. With
// no hash configured the admin routes answer 404.
func adminKeyMiddleware(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				writeError(w, http.StatusNotFound, hunt.CodeNotFound, "admin api disabled")
				return
			}
			key := bearerToken(r)
			if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
				writeError(w, hunt.CodeUnauthenticated.HTTPStatus(), hunt.CodeUnauthenticated, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
