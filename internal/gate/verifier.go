package gate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/playperu/huntgate/internal/hunt"
)

// Resolution is the team identity a code resolves to.
type Resolution struct {
	TeamID string
	OrgID  string
	HuntID string
}

// CodeVerifier resolves team codes to team identities.
type CodeVerifier struct {
	codes  CodeStore
	logger *slog.Logger
}

func NewCodeVerifier(codes CodeStore, logger *slog.Logger) *CodeVerifier {
	return &CodeVerifier{codes: codes, logger: logger}
}

// Verify resolves code within scope and records one use of it. Matching is
// exact after trimming, ignoring case. A code that matches in more than one
// org or hunt without a narrowing scope is treated as unknown.
func (v *CodeVerifier) Verify(ctx context.Context, code string, scope Scope) (Resolution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Resolution{}, hunt.ErrCodeInvalid
	}

	matches, err := v.codes.FindCodes(ctx, code, scope)
	if err != nil {
		return Resolution{}, storageError("looking up team code", err)
	}
	switch len(matches) {
	case 0:
		return Resolution{}, hunt.ErrCodeInvalid
	case 1:
	default:
		v.logger.WarnContext(ctx, "team code is ambiguous without scope", "matches", len(matches))
		return Resolution{}, hunt.ErrCodeInvalid
	}

	tc := matches[0]
	if !tc.Active {
		return Resolution{}, hunt.ErrCodeInactive
	}
	if tc.Exhausted() {
		return Resolution{}, hunt.ErrCodeExhausted
	}

	ok, err := v.codes.ConsumeCode(ctx, tc.ID)
	if err != nil {
		return Resolution{}, storageError("recording team code use", err)
	}
	if !ok {
		return Resolution{}, hunt.ErrCodeExhausted
	}

	return Resolution{TeamID: tc.TeamID, OrgID: tc.OrgID, HuntID: tc.HuntID}, nil
}
