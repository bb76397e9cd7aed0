// Package token issues and verifies lock tokens: HS256 JWTs that prove a
// device was bound to a team. Verification needs only the shared secret.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/playperu/huntgate/internal/hunt"
)

const issuer = "huntgate"

// Subject is what a token attests to.
type Subject struct {
	TeamID          string
	OrgID           string
	HuntID          string
	FingerprintHash string
}

// Issuer signs and verifies lock tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// New returns an Issuer. now may be nil, in which case time.Now is used.
func New(secret []byte, now func() time.Time) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, now: now}, nil
}

type lockClaims struct {
	jwt.RegisteredClaims
	TeamID          string `json:"tid"`
	OrgID           string `json:"org"`
	HuntID          string `json:"hunt"`
	FingerprintHash string `json:"fph"`
}

// Issue mints a token for sub that expires ttl from now, rounded up to the
// whole second a JWT exp can carry.
func (i *Issuer) Issue(sub Subject, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if sub.TeamID == "" || sub.FingerprintHash == "" {
		return "", time.Time{}, errors.New("token subject requires team and fingerprint hash")
	}

	now := i.now().UTC()
	exp := hunt.CeilSecond(now.Add(ttl))
	claims := lockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub.TeamID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TeamID:          sub.TeamID,
		OrgID:           sub.OrgID,
		HuntID:          sub.HuntID,
		FingerprintHash: sub.FingerprintHash,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing lock token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry of raw. It does not consult the
// device lock or team code, so a revoked binding stays valid until exp.
func (i *Issuer) Verify(raw string) (hunt.LockClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return hunt.LockClaims{}, hunt.NewError(hunt.CodeTokenInvalid, "lock token is required")
	}

	var parsed lockClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return hunt.LockClaims{}, mapJWTError(err)
	}

	if parsed.Issuer != issuer {
		return hunt.LockClaims{}, hunt.NewError(hunt.CodeTokenInvalid, "lock token issuer mismatch")
	}
	if parsed.ExpiresAt == nil || parsed.IssuedAt == nil {
		return hunt.LockClaims{}, hunt.NewError(hunt.CodeTokenInvalid, "lock token is missing iat or exp")
	}
	if parsed.TeamID == "" || parsed.FingerprintHash == "" {
		return hunt.LockClaims{}, hunt.NewError(hunt.CodeTokenInvalid, "lock token is missing team or device")
	}

	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(i.now().UTC()) {
		return hunt.LockClaims{}, hunt.ErrTokenExpired
	}

	return hunt.LockClaims{
		ID:              parsed.ID,
		TeamID:          parsed.TeamID,
		OrgID:           parsed.OrgID,
		HuntID:          parsed.HuntID,
		FingerprintHash: parsed.FingerprintHash,
		IssuedAt:        parsed.IssuedAt.Time.UTC(),
		ExpiresAt:       exp,
	}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return hunt.WrapError(hunt.CodeTokenInvalid, "lock token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return hunt.WrapError(hunt.CodeTokenInvalid, "lock token is malformed", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return hunt.WrapError(hunt.CodeTokenInvalid, "lock token alg is invalid", err)
	}
	return hunt.WrapError(hunt.CodeTokenInvalid, "lock token is invalid", err)
}
