// Package hunt defines the core domain types shared by the admission,
// ordering and progress components. It has no storage or transport
// dependencies.
package hunt

import "time"

type Org struct {
	ID   string
	Name string
}

// Hunt is the read-only configuration of one event inside an org.
type Hunt struct {
	OrgID    string
	ID       string
	Name     string
	Strategy OrderingStrategy

	// Seed drives the shared permutation under SeedGlobal.
	Seed int64
}

type Stop struct {
	ID              string
	OrgID           string
	HuntID          string
	Title           string
	Clue            string
	Hints           []string
	DefaultPosition int
	Active          bool
}

type Team struct {
	ID        string
	OrgID     string
	HuntID    string
	Name      string
	CreatedAt time.Time

	// OrderSeed is assigned once at provisioning and never changes.
	OrderSeed int64
}

type TeamCode struct {
	ID       string
	Code     string
	OrgID    string
	HuntID   string
	TeamID   string
	Active   bool
	UseCount int
	MaxUses  *int
}

// Exhausted reports whether the code has reached its usage limit.
func (c TeamCode) Exhausted() bool {
	return c.MaxUses != nil && c.UseCount >= *c.MaxUses
}

// DeviceLock binds one device fingerprint to one team until ExpiresAt.
type DeviceLock struct {
	Fingerprint string
	TeamID      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the lock no longer holds at now. A lock whose
// expiry equals now is already expired.
func (l DeviceLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// LockClaims is the verified content of a lock token.
type LockClaims struct {
	ID              string
	TeamID          string
	OrgID           string
	HuntID          string
	FingerprintHash string
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// StopPosition is one row of a team's stop order.
type StopPosition struct {
	StopID   string
	Position int
}

type ProgressRecord struct {
	TeamID        string
	StopID        string
	Done          bool
	HintsRevealed int
	CompletedAt   *time.Time
	PhotoRef      string
}

// TeamStanding is one leaderboard row.
type TeamStanding struct {
	TeamID          string
	TeamName        string
	Completed       int
	LastCompletedAt *time.Time
}

// CeilSecond rounds t up to the next whole second. Lock and token expiries
// are kept on whole seconds so a JWT exp can represent them exactly.
func CeilSecond(t time.Time) time.Time {
	c := t.Truncate(time.Second)
	if c.Before(t) {
		c = c.Add(time.Second)
	}
	return c
}
