package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/huntgate/internal/hunt"
)

// StopInput is one stop in a hunt definition.
type StopInput struct {
	ID       string
	Title    string
	Clue     string
	Hints    []string
	Position int
}

// HuntInput replaces a hunt's configuration.
type HuntInput struct {
	OrgID    string
	OrgName  string
	HuntID   string
	Name     string
	Strategy hunt.OrderingStrategy
	Seed     int64
	Stops    []StopInput
}

// TeamInput provisions a team together with its join code.
type TeamInput struct {
	OrgID   string
	HuntID  string
	Name    string
	Code    string
	MaxUses *int
}

// UpsertHunt creates or replaces a hunt. Stops absent from in are
// deactivated rather than deleted so stored orders and progress survive.
func (s *SQLiteStore) UpsertHunt(ctx context.Context, in HuntInput) error {
	if in.OrgID == "" || in.HuntID == "" {
		return hunt.NewError(hunt.CodeInvalidArgument, "org id and hunt id are required")
	}
	if in.Name == "" {
		in.Name = in.HuntID
	}
	if in.OrgName == "" {
		in.OrgName = in.OrgID
	}
	if in.Strategy.Kind == "" {
		in.Strategy = hunt.Fixed()
	}
	seedStrategy := in.Strategy.Seed
	if seedStrategy == "" {
		seedStrategy = hunt.SeedTeam
	}

	in.Stops = slices.Clone(in.Stops)
	seen := make(map[string]bool, len(in.Stops))
	taken := make(map[int]string, len(in.Stops))
	for i := range in.Stops {
		st := &in.Stops[i]
		if st.ID == "" || st.Title == "" {
			return hunt.NewError(hunt.CodeInvalidArgument, "every stop needs an id and a title")
		}
		if seen[st.ID] {
			return hunt.NewError(hunt.CodeInvalidArgument, fmt.Sprintf("duplicate stop id %q", st.ID))
		}
		seen[st.ID] = true

		if st.Position < 0 {
			return hunt.NewError(hunt.CodeInvalidArgument, fmt.Sprintf("stop %q has a negative position", st.ID))
		}
		if st.Position == 0 {
			st.Position = i + 1
		}
		if other, ok := taken[st.Position]; ok {
			return hunt.NewError(hunt.CodeInvalidArgument, fmt.Sprintf("stops %q and %q share position %d", other, st.ID, st.Position))
		}
		taken[st.Position] = st.ID
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orgs (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name
		`, in.OrgID, in.OrgName); err != nil {
			return fmt.Errorf("upserting org: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hunts (org_id, id, name, strategy, seed_strategy, seed) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (org_id, id) DO UPDATE SET
				name = excluded.name,
				strategy = excluded.strategy,
				seed_strategy = excluded.seed_strategy,
				seed = excluded.seed
		`, in.OrgID, in.HuntID, in.Name, string(in.Strategy.Kind), string(seedStrategy), in.Seed); err != nil {
			return fmt.Errorf("upserting hunt: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stops SET active = 0 WHERE org_id = ? AND hunt_id = ?
		`, in.OrgID, in.HuntID); err != nil {
			return fmt.Errorf("deactivating stops: %w", err)
		}

		for _, st := range in.Stops {
			hints, err := encodeHints(st.Hints)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stops (org_id, hunt_id, id, title, clue, hints, default_position, active)
				VALUES (?, ?, ?, ?, ?, ?, ?, 1)
				ON CONFLICT (org_id, hunt_id, id) DO UPDATE SET
					title = excluded.title,
					clue = excluded.clue,
					hints = excluded.hints,
					default_position = excluded.default_position,
					active = 1
			`, in.OrgID, in.HuntID, st.ID, st.Title, st.Clue, hints, st.Position); err != nil {
				return fmt.Errorf("upserting stop %s: %w", st.ID, err)
			}
		}
		return nil
	})
}

// SetStopActive toggles a single stop. A stop cannot be reactivated while
// another active stop holds its position.
func (s *SQLiteStore) SetStopActive(ctx context.Context, orgID, huntID, stopID string, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE stops SET active = ?
		WHERE org_id = ? AND hunt_id = ? AND id = ?
			AND (? = 0 OR NOT EXISTS (
				SELECT 1 FROM stops other
				WHERE other.org_id = stops.org_id AND other.hunt_id = stops.hunt_id
					AND other.id <> stops.id AND other.active = 1
					AND other.default_position = stops.default_position
			))
	`, boolInt(active), orgID, huntID, stopID, boolInt(active))
	if err != nil {
		return fmt.Errorf("updating stop: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM stops WHERE org_id = ? AND hunt_id = ? AND id = ?)
	`, orgID, huntID, stopID).Scan(&exists); err != nil {
		return fmt.Errorf("checking stop: %w", err)
	}
	if !exists {
		return hunt.ErrNotFound
	}
	return hunt.NewError(hunt.CodeAlreadyExists, fmt.Sprintf("another active stop holds the position of %q", stopID))
}

// CreateTeam inserts a team with a fresh order seed and its join code.
func (s *SQLiteStore) CreateTeam(ctx context.Context, in TeamInput) (hunt.Team, hunt.TeamCode, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Name == "" || in.Code == "" {
		return hunt.Team{}, hunt.TeamCode{}, hunt.NewError(hunt.CodeInvalidArgument, "team name and code are required")
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return hunt.Team{}, hunt.TeamCode{}, hunt.NewError(hunt.CodeInvalidArgument, "max uses must be positive")
	}
	if _, err := s.Hunt(ctx, in.OrgID, in.HuntID); err != nil {
		return hunt.Team{}, hunt.TeamCode{}, err
	}

	seed, err := randomSeed()
	if err != nil {
		return hunt.Team{}, hunt.TeamCode{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	team := hunt.Team{
		ID:        uuid.NewString(),
		OrgID:     in.OrgID,
		HuntID:    in.HuntID,
		Name:      in.Name,
		OrderSeed: seed,
		CreatedAt: now,
	}
	code := hunt.TeamCode{
		ID:      uuid.NewString(),
		Code:    in.Code,
		OrgID:   in.OrgID,
		HuntID:  in.HuntID,
		TeamID:  team.ID,
		Active:  true,
		MaxUses: in.MaxUses,
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teams (id, org_id, hunt_id, name, order_seed, created_at) VALUES (?, ?, ?, ?, ?, ?)
		`, team.ID, team.OrgID, team.HuntID, team.Name, team.OrderSeed, toMillis(team.CreatedAt)); err != nil {
			return fmt.Errorf("inserting team: %w", err)
		}
		var maxUses sql.NullInt64
		if in.MaxUses != nil {
			maxUses = sql.NullInt64{Int64: int64(*in.MaxUses), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_codes (id, code, org_id, hunt_id, team_id, active, use_count, max_uses, created_at)
			VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?)
		`, code.ID, code.Code, code.OrgID, code.HuntID, code.TeamID, maxUses, toMillis(now)); err != nil {
			if isUniqueViolation(err) {
				return hunt.NewError(hunt.CodeAlreadyExists, "code already in use in this hunt")
			}
			return fmt.Errorf("inserting team code: %w", err)
		}
		return nil
	})
	if err != nil {
		return hunt.Team{}, hunt.TeamCode{}, err
	}
	return team, code, nil
}

// DeactivateCode stops a code from admitting new devices. Devices already
// bound keep their locks.
func (s *SQLiteStore) DeactivateCode(ctx context.Context, codeID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE team_codes SET active = 0 WHERE id = ?`, codeID)
	if err != nil {
		return fmt.Errorf("deactivating code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivating code: %w", err)
	}
	if n == 0 {
		return hunt.ErrNotFound
	}
	return nil
}

// randomSeed returns a non-zero seed.
func randomSeed() (int64, error) {
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("generating order seed: %w", err)
		}
		if seed := int64(binary.LittleEndian.Uint64(b[:])); seed != 0 {
			return seed, nil
		}
	}
}
