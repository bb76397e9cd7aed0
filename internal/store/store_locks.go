package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

// AcquireLock is a single upsert: the row is written when absent or
// expired, otherwise left as is. RETURNING yields nothing when the existing
// row was kept, in which case it is read back.
func (s *SQLiteStore) AcquireLock(ctx context.Context, lock hunt.DeviceLock, now time.Time) (hunt.DeviceLock, bool, error) {
	// An expired row can be swept between the upsert and the read back;
	// one retry reclaims it.
	for attempt := 0; attempt < 2; attempt++ {
		var teamID string
		var issuedAt, expiresAt int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO device_locks (fingerprint, team_id, issued_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (fingerprint) DO UPDATE SET
				team_id = excluded.team_id,
				issued_at = excluded.issued_at,
				expires_at = excluded.expires_at
			WHERE device_locks.expires_at <= ?
			RETURNING team_id, issued_at, expires_at
		`, lock.Fingerprint, lock.TeamID, toMillis(lock.IssuedAt), toMillis(lock.ExpiresAt), toMillis(now),
		).Scan(&teamID, &issuedAt, &expiresAt)
		if err == nil {
			return hunt.DeviceLock{
				Fingerprint: lock.Fingerprint,
				TeamID:      teamID,
				IssuedAt:    fromMillis(issuedAt),
				ExpiresAt:   fromMillis(expiresAt),
			}, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return hunt.DeviceLock{}, false, fmt.Errorf("upserting device lock: %w", err)
		}

		held, err := s.DeviceLock(ctx, lock.Fingerprint)
		if errors.Is(err, hunt.ErrNotFound) {
			continue
		}
		if err != nil {
			return hunt.DeviceLock{}, false, err
		}
		return held, false, nil
	}
	return hunt.DeviceLock{}, false, fmt.Errorf("device lock for %q vanished during bind", lock.Fingerprint)
}

// DeviceLock returns the stored lock for fingerprint, expired or not.
func (s *SQLiteStore) DeviceLock(ctx context.Context, fingerprint string) (hunt.DeviceLock, error) {
	l := hunt.DeviceLock{Fingerprint: fingerprint}
	var issuedAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT team_id, issued_at, expires_at FROM device_locks WHERE fingerprint = ?
	`, fingerprint).Scan(&l.TeamID, &issuedAt, &expiresAt)
	if err != nil {
		return hunt.DeviceLock{}, notFound(err)
	}
	l.IssuedAt = fromMillis(issuedAt)
	l.ExpiresAt = fromMillis(expiresAt)
	return l, nil
}

func (s *SQLiteStore) SweepLocks(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM device_locks WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired locks: %w", err)
	}
	return result.RowsAffected()
}
