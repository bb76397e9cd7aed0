package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

func (s *SQLiteStore) TeamOrder(ctx context.Context, teamID string) ([]hunt.StopPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stop_id, position FROM team_stop_orders WHERE team_id = ? ORDER BY position
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("querying team order: %w", err)
	}
	defer rows.Close()

	order := []hunt.StopPosition{}
	for rows.Next() {
		var p hunt.StopPosition
		if err := rows.Scan(&p.StopID, &p.Position); err != nil {
			return nil, fmt.Errorf("scanning team order: %w", err)
		}
		order = append(order, p)
	}
	return order, rows.Err()
}

// CreateTeamOrder writes the header and every position row in one
// transaction. The header insert is the arbiter: when it affects no row a
// concurrent writer has already committed its order and nothing is written.
func (s *SQLiteStore) CreateTeamOrder(ctx context.Context, teamID string, seed int64, order []hunt.StopPosition) (bool, error) {
	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO team_orders (team_id, seed, created_at) VALUES (?, ?, ?)
			ON CONFLICT (team_id) DO NOTHING
		`, teamID, seed, toMillis(time.Now()))
		if err != nil {
			return fmt.Errorf("inserting team order: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("inserting team order: %w", err)
		}
		if n == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO team_stop_orders (team_id, stop_id, position) VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing team stop order: %w", err)
		}
		defer stmt.Close()
		for _, p := range order {
			if _, err := stmt.ExecContext(ctx, teamID, p.StopID, p.Position); err != nil {
				return fmt.Errorf("inserting position of %s: %w", p.StopID, err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *SQLiteStore) AppendTeamStops(ctx context.Context, teamID string, stopIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range stopIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO team_stop_orders (team_id, stop_id, position)
				SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM team_stop_orders WHERE team_id = ?
				ON CONFLICT (team_id, stop_id) DO NOTHING
			`, teamID, id, teamID)
			if err != nil {
				return fmt.Errorf("appending %s to team order: %w", id, err)
			}
		}
		return nil
	})
}
