package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

func (s *SQLiteStore) EnsureProgress(ctx context.Context, teamID string, stopIDs []string) (int, error) {
	if len(stopIDs) == 0 {
		return 0, nil
	}
	created := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO progress (team_id, stop_id) VALUES (?, ?)
			ON CONFLICT (team_id, stop_id) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("preparing progress insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range stopIDs {
			result, err := stmt.ExecContext(ctx, teamID, id)
			if err != nil {
				return fmt.Errorf("inserting progress for %s: %w", id, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("inserting progress for %s: %w", id, err)
			}
			created += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *SQLiteStore) TeamProgress(ctx context.Context, teamID string) ([]hunt.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stop_id, done, hints_revealed, completed_at, photo_ref
		FROM progress WHERE team_id = ? ORDER BY stop_id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	records := []hunt.ProgressRecord{}
	for rows.Next() {
		rec := hunt.ProgressRecord{TeamID: teamID}
		if err := scanProgress(rows, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner, rec *hunt.ProgressRecord) error {
	var done int
	var completedAt sql.NullInt64
	if err := row.Scan(&rec.StopID, &done, &rec.HintsRevealed, &completedAt, &rec.PhotoRef); err != nil {
		return fmt.Errorf("scanning progress: %w", err)
	}
	rec.Done = done == 1
	rec.CompletedAt = nullMillis(completedAt)
	return nil
}

// CompleteStop creates the record if needed and marks it done. The first
// completion time and photo are kept on repeat calls.
func (s *SQLiteStore) CompleteStop(ctx context.Context, teamID, stopID, photoRef string, at time.Time) (hunt.ProgressRecord, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (team_id, stop_id, done, completed_at, photo_ref) VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (team_id, stop_id) DO UPDATE SET
			done = 1,
			completed_at = COALESCE(progress.completed_at, excluded.completed_at),
			photo_ref = CASE WHEN progress.done = 1 THEN progress.photo_ref ELSE excluded.photo_ref END
	`, teamID, stopID, toMillis(at), photoRef)
	if err != nil {
		return hunt.ProgressRecord{}, fmt.Errorf("completing stop: %w", err)
	}
	return s.progressRecord(ctx, teamID, stopID)
}

func (s *SQLiteStore) RevealHint(ctx context.Context, teamID, stopID string, max int) (hunt.ProgressRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE progress SET hints_revealed = MIN(hints_revealed + 1, ?)
		WHERE team_id = ? AND stop_id = ?
	`, max, teamID, stopID)
	if err != nil {
		return hunt.ProgressRecord{}, fmt.Errorf("revealing hint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return hunt.ProgressRecord{}, fmt.Errorf("revealing hint: %w", err)
	}
	if n == 0 {
		return hunt.ProgressRecord{}, hunt.ErrNotFound
	}
	return s.progressRecord(ctx, teamID, stopID)
}

func (s *SQLiteStore) progressRecord(ctx context.Context, teamID, stopID string) (hunt.ProgressRecord, error) {
	rec := hunt.ProgressRecord{TeamID: teamID}
	row := s.db.QueryRowContext(ctx, `
		SELECT stop_id, done, hints_revealed, completed_at, photo_ref
		FROM progress WHERE team_id = ? AND stop_id = ?
	`, teamID, stopID)
	if err := scanProgress(row, &rec); err != nil {
		return hunt.ProgressRecord{}, notFound(err)
	}
	return rec, nil
}

// Leaderboard counts completed active stops per team, most first, ties
// broken by the earlier last completion.
func (s *SQLiteStore) Leaderboard(ctx context.Context, orgID, huntID string) ([]hunt.TeamStanding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(st.id) AS completed,
			MAX(CASE WHEN st.id IS NOT NULL THEN p.completed_at END) AS last_completed
		FROM teams t
		LEFT JOIN progress p ON p.team_id = t.id AND p.done = 1
		LEFT JOIN stops st ON st.org_id = t.org_id AND st.hunt_id = t.hunt_id
			AND st.id = p.stop_id AND st.active = 1
		WHERE t.org_id = ? AND t.hunt_id = ?
		GROUP BY t.id, t.name
		ORDER BY completed DESC, last_completed IS NULL, last_completed, t.name
	`, orgID, huntID)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	standings := []hunt.TeamStanding{}
	for rows.Next() {
		var st hunt.TeamStanding
		var last sql.NullInt64
		if err := rows.Scan(&st.TeamID, &st.TeamName, &st.Completed, &last); err != nil {
			return nil, fmt.Errorf("scanning leaderboard: %w", err)
		}
		st.LastCompletedAt = nullMillis(last)
		standings = append(standings, st)
	}
	return standings, rows.Err()
}
