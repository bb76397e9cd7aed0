package gate

import (
	"context"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

// Scope narrows a code lookup to an org and optionally a hunt. Empty
// fields match anything.
type Scope struct {
	OrgID  string
	HuntID string
}

// CodeStore resolves team codes.
type CodeStore interface {
	// FindCodes returns every code equal to code under case-insensitive
	// comparison within scope.
	FindCodes(ctx context.Context, code string, scope Scope) ([]hunt.TeamCode, error)
	// ConsumeCode increments the usage counter unless the limit has been
	// reached. It reports false when the code is exhausted.
	ConsumeCode(ctx context.Context, codeID string) (bool, error)
}

// LockStore persists device locks.
type LockStore interface {
	// AcquireLock inserts lock, or overwrites an existing row for the same
	// fingerprint only when that row is expired at now. It returns the row
	// that holds after the call and whether lock was written.
	AcquireLock(ctx context.Context, lock hunt.DeviceLock, now time.Time) (hunt.DeviceLock, bool, error)
	// SweepLocks deletes locks expired at now.
	SweepLocks(ctx context.Context, now time.Time) (int64, error)
}

// ConfigStore is the read-only hunt configuration.
type ConfigStore interface {
	Hunt(ctx context.Context, orgID, huntID string) (hunt.Hunt, error)
	// ActiveStops returns the active stops of a hunt sorted by default
	// position, then id.
	ActiveStops(ctx context.Context, orgID, huntID string) ([]hunt.Stop, error)
	Team(ctx context.Context, teamID string) (hunt.Team, error)
}

// OrderStore persists per-team stop permutations.
type OrderStore interface {
	// TeamOrder returns the stored order sorted by position, or an empty
	// slice when none exists.
	TeamOrder(ctx context.Context, teamID string) ([]hunt.StopPosition, error)
	// CreateTeamOrder stores order as the team's permutation unless one
	// already exists. It reports false when another writer got there first.
	CreateTeamOrder(ctx context.Context, teamID string, seed int64, order []hunt.StopPosition) (bool, error)
	// AppendTeamStops gives each stop not yet in the team's order the next
	// free position, in the given sequence.
	AppendTeamStops(ctx context.Context, teamID string, stopIDs []string) error
}

// ProgressStore persists per-team, per-stop progress.
type ProgressStore interface {
	// EnsureProgress inserts a default record for each stop that has none.
	EnsureProgress(ctx context.Context, teamID string, stopIDs []string) (int, error)
	TeamProgress(ctx context.Context, teamID string) ([]hunt.ProgressRecord, error)
	CompleteStop(ctx context.Context, teamID, stopID, photoRef string, at time.Time) (hunt.ProgressRecord, error)
	// RevealHint increments hints revealed up to max and returns the record.
	RevealHint(ctx context.Context, teamID, stopID string, max int) (hunt.ProgressRecord, error)
	Leaderboard(ctx context.Context, orgID, huntID string) ([]hunt.TeamStanding, error)
}
