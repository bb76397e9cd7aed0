package gate

import (
	"context"
	"log/slog"

	"github.com/playperu/huntgate/internal/hunt"
)

// OrderingEngine computes or retrieves each team's stop order.
type OrderingEngine struct {
	config ConfigStore
	orders OrderStore
	logger *slog.Logger
}

func NewOrderingEngine(config ConfigStore, orders OrderStore, logger *slog.Logger) *OrderingEngine {
	return &OrderingEngine{config: config, orders: orders, logger: logger}
}

// Order returns the team's active stops with their positions, sorted by
// position. Under a randomized strategy the permutation is generated and
// stored on first use; it is never returned unless stored.
func (e *OrderingEngine) Order(ctx context.Context, teamID, orgID, huntID string) ([]hunt.StopPosition, error) {
	h, err := e.config.Hunt(ctx, orgID, huntID)
	if err != nil {
		return nil, storageError("loading hunt", err)
	}
	team, err := e.config.Team(ctx, teamID)
	if err != nil {
		return nil, storageError("loading team", err)
	}
	if team.OrgID != orgID || team.HuntID != huntID {
		return nil, hunt.NewError(hunt.CodeNotFound, "team is not part of this hunt")
	}
	stops, err := e.config.ActiveStops(ctx, orgID, huntID)
	if err != nil {
		return nil, storageError("loading stops", err)
	}

	if h.Strategy.Kind != hunt.StrategyRandomized {
		return fixedOrder(stops), nil
	}
	if len(stops) == 0 {
		return []hunt.StopPosition{}, nil
	}

	stored, err := e.orders.TeamOrder(ctx, teamID)
	if err != nil {
		return nil, storageError("loading team order", err)
	}

	if len(stored) == 0 {
		seed := TeamSeed(team)
		if h.Strategy.Seed == hunt.SeedGlobal {
			seed = h.Seed
		}
		stored, err = e.generate(ctx, teamID, seed, stops)
		if err != nil {
			return nil, err
		}
	}

	if missing := missingStops(stored, stops); len(missing) > 0 {
		if err := e.orders.AppendTeamStops(ctx, teamID, missing); err != nil {
			return nil, hunt.WrapError(hunt.CodeOrderingGeneration, "appending new stops to team order", err)
		}
		e.logger.InfoContext(ctx, "appended stops to team order", "team_id", teamID, "count", len(missing))
		stored, err = e.orders.TeamOrder(ctx, teamID)
		if err != nil {
			return nil, storageError("reloading team order", err)
		}
	}

	return activeOnly(stored, stops), nil
}

func (e *OrderingEngine) generate(ctx context.Context, teamID string, seed int64, stops []hunt.Stop) ([]hunt.StopPosition, error) {
	perm := Permute(stopIDs(stops), seed)

	created, err := e.orders.CreateTeamOrder(ctx, teamID, seed, perm)
	if err != nil {
		return nil, hunt.WrapError(hunt.CodeOrderingGeneration, "storing team order", err)
	}
	if created {
		e.logger.InfoContext(ctx, "generated team order", "team_id", teamID, "stops", len(perm))
		return perm, nil
	}

	// Lost the race: the winner's rows are the order.
	stored, err := e.orders.TeamOrder(ctx, teamID)
	if err != nil {
		return nil, storageError("loading concurrent team order", err)
	}
	if len(stored) == 0 {
		return nil, hunt.WrapError(hunt.CodeOrderingGeneration, "team order header exists without rows", nil)
	}
	return stored, nil
}

// fixedOrder returns the configured default positions as they are.
func fixedOrder(stops []hunt.Stop) []hunt.StopPosition {
	order := make([]hunt.StopPosition, len(stops))
	for i, s := range stops {
		order[i] = hunt.StopPosition{StopID: s.ID, Position: s.DefaultPosition}
	}
	return order
}

func stopIDs(stops []hunt.Stop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}

// missingStops returns active stop ids absent from order, in default order.
func missingStops(order []hunt.StopPosition, stops []hunt.Stop) []string {
	have := make(map[string]bool, len(order))
	for _, p := range order {
		have[p.StopID] = true
	}
	var missing []string
	for _, s := range stops {
		if !have[s.ID] {
			missing = append(missing, s.ID)
		}
	}
	return missing
}

func activeOnly(order []hunt.StopPosition, stops []hunt.Stop) []hunt.StopPosition {
	active := make(map[string]bool, len(stops))
	for _, s := range stops {
		active[s.ID] = true
	}
	out := make([]hunt.StopPosition, 0, len(order))
	for _, p := range order {
		if active[p.StopID] {
			out = append(out, p)
		}
	}
	return out
}
