package store

import (
	"context"
	"fmt"

	"github.com/playperu/huntgate/internal/hunt"
)

func (s *SQLiteStore) Hunt(ctx context.Context, orgID, huntID string) (hunt.Hunt, error) {
	h := hunt.Hunt{OrgID: orgID, ID: huntID}
	var kind, seedStrategy string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, strategy, seed_strategy, seed FROM hunts WHERE org_id = ? AND id = ?
	`, orgID, huntID).Scan(&h.Name, &kind, &seedStrategy, &h.Seed)
	if err != nil {
		return hunt.Hunt{}, notFound(err)
	}
	h.Strategy, err = hunt.ParseStrategy(kind, seedStrategy)
	if err != nil {
		return hunt.Hunt{}, fmt.Errorf("hunt %s/%s: %w", orgID, huntID, err)
	}
	return h, nil
}

func (s *SQLiteStore) ActiveStops(ctx context.Context, orgID, huntID string) ([]hunt.Stop, error) {
	return s.stops(ctx, orgID, huntID, true)
}

// Stops returns every stop of a hunt, active or not.
func (s *SQLiteStore) Stops(ctx context.Context, orgID, huntID string) ([]hunt.Stop, error) {
	return s.stops(ctx, orgID, huntID, false)
}

func (s *SQLiteStore) stops(ctx context.Context, orgID, huntID string, activeOnly bool) ([]hunt.Stop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, clue, hints, default_position, active
		FROM stops
		WHERE org_id = ? AND hunt_id = ? AND (active = 1 OR ? = 0)
		ORDER BY default_position, id
	`, orgID, huntID, boolInt(activeOnly))
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []hunt.Stop{}
	for rows.Next() {
		st := hunt.Stop{OrgID: orgID, HuntID: huntID}
		var hints string
		var active int
		if err := rows.Scan(&st.ID, &st.Title, &st.Clue, &hints, &st.DefaultPosition, &active); err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		if st.Hints, err = decodeHints(hints); err != nil {
			return nil, fmt.Errorf("stop %s: %w", st.ID, err)
		}
		st.Active = active == 1
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

func (s *SQLiteStore) Team(ctx context.Context, teamID string) (hunt.Team, error) {
	t := hunt.Team{ID: teamID}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT org_id, hunt_id, name, order_seed, created_at FROM teams WHERE id = ?
	`, teamID).Scan(&t.OrgID, &t.HuntID, &t.Name, &t.OrderSeed, &createdAt)
	if err != nil {
		return hunt.Team{}, notFound(err)
	}
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}
