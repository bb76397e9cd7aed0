package server

import (
	"net/http"

	"github.com/playperu/huntgate/internal/hunt"
)

type ctxKey int

const (
	ctxKeyClaims ctxKey = iota
)

func claimsFrom(r *http.Request) hunt.LockClaims {
	return r.Context().Value(ctxKeyClaims).(hunt.LockClaims)
}
