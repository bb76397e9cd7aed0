package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

// Binding is the outcome of a successful bind.
type Binding struct {
	Locked    bool
	ExpiresAt time.Time

	// Created is false when an existing lock for the same team was reused.
	Created bool
}

// DeviceBinder enforces one active team per device fingerprint.
type DeviceBinder struct {
	locks  LockStore
	now    func() time.Time
	logger *slog.Logger
}

func NewDeviceBinder(locks LockStore, now func() time.Time, logger *slog.Logger) *DeviceBinder {
	if now == nil {
		now = time.Now
	}
	return &DeviceBinder{locks: locks, now: now, logger: logger}
}

// Bind locks fingerprint to teamID for ttl. Rebinding to the same team
// returns the original expiry unchanged; binding to another team while an
// unexpired lock exists fails with DeviceConflict and leaves it intact.
func (b *DeviceBinder) Bind(ctx context.Context, fingerprint, teamID string, ttl time.Duration) (Binding, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return Binding{}, hunt.NewError(hunt.CodeInvalidArgument, "device fingerprint is required")
	}
	if teamID == "" {
		return Binding{}, hunt.NewError(hunt.CodeInvalidArgument, "team id is required")
	}
	if ttl <= 0 {
		return Binding{}, hunt.NewError(hunt.CodeInvalidArgument, fmt.Sprintf("lock ttl must be positive, got %s", ttl))
	}

	now := b.now().UTC()
	want := hunt.DeviceLock{
		Fingerprint: fingerprint,
		TeamID:      teamID,
		IssuedAt:    now,
		ExpiresAt:   hunt.CeilSecond(now.Add(ttl)),
	}

	held, created, err := b.locks.AcquireLock(ctx, want, now)
	if err != nil {
		return Binding{}, storageError("acquiring device lock", err)
	}
	if held.TeamID != teamID {
		b.logger.InfoContext(ctx, "device bind rejected", "team_id", teamID, "held_by", held.TeamID)
		return Binding{}, hunt.ErrDeviceConflict
	}

	return Binding{Locked: true, ExpiresAt: held.ExpiresAt, Created: created}, nil
}

// Sweep removes expired locks. It is storage hygiene only: Bind reclaims
// expired rows on its own.
func (b *DeviceBinder) Sweep(ctx context.Context) (int64, error) {
	n, err := b.locks.SweepLocks(ctx, b.now().UTC())
	if err != nil {
		return 0, storageError("sweeping device locks", err)
	}
	return n, nil
}
