package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

func (s *SQLiteStore) FindCodes(ctx context.Context, code string, scope gate.Scope) ([]hunt.TeamCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, org_id, hunt_id, team_id, active, use_count, max_uses
		FROM team_codes
		WHERE code = ?
			AND (? = '' OR org_id = ?)
			AND (? = '' OR hunt_id = ?)
		ORDER BY org_id, hunt_id
	`, code, scope.OrgID, scope.OrgID, scope.HuntID, scope.HuntID)
	if err != nil {
		return nil, fmt.Errorf("querying team codes: %w", err)
	}
	defer rows.Close()

	var codes []hunt.TeamCode
	for rows.Next() {
		var (
			tc      hunt.TeamCode
			active  int
			maxUses sql.NullInt64
		)
		if err := rows.Scan(&tc.ID, &tc.Code, &tc.OrgID, &tc.HuntID, &tc.TeamID, &active, &tc.UseCount, &maxUses); err != nil {
			return nil, fmt.Errorf("scanning team code: %w", err)
		}
		tc.Active = active == 1
		if maxUses.Valid {
			n := int(maxUses.Int64)
			tc.MaxUses = &n
		}
		codes = append(codes, tc)
	}
	return codes, rows.Err()
}

func (s *SQLiteStore) ConsumeCode(ctx context.Context, codeID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE team_codes SET use_count = use_count + 1
		WHERE id = ? AND (max_uses IS NULL OR use_count < max_uses)
	`, codeID)
	if err != nil {
		return false, fmt.Errorf("incrementing code usage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("incrementing code usage: %w", err)
	}
	return n == 1, nil
}
