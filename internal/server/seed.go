package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
	"github.com/playperu/huntgate/internal/store"
)

// DemoStore is what SeedDemo needs from storage.
type DemoStore interface {
	AdminStore
	FindCodes(ctx context.Context, code string, scope gate.Scope) ([]hunt.TeamCode, error)
}

const (
	demoOrg  = "demo"
	demoHunt = "lima"
)

var demoTeams = []store.TeamInput{
	{OrgID: demoOrg, HuntID: demoHunt, Name: "alpha", Code: "ALPHA01"},
	{OrgID: demoOrg, HuntID: demoHunt, Name: "beta", Code: "BETA02"},
}

// SeedDemo creates the demo hunt and its two teams. Existing teams are left
// alone, so it can run on every start.
func SeedDemo(ctx context.Context, logger *slog.Logger, st DemoStore) error {
	err := st.UpsertHunt(ctx, store.HuntInput{
		OrgID:    demoOrg,
		OrgName:  "Demo",
		HuntID:   demoHunt,
		Name:     "Lima Centro Historico",
		Strategy: hunt.Randomized(hunt.SeedTeam),
		Stops: []store.StopInput{
			{ID: "plaza-mayor", Title: "Plaza Mayor", Clue: "Head to the main square where Pizarro founded the city. Look for the bronze fountain in the center.", Hints: []string{"The fountain dates from 1651.", "Stand facing the cathedral."}},
			{ID: "san-francisco", Title: "Iglesia de San Francisco", Clue: "Walk south to the yellow church with famous underground tunnels.", Hints: []string{"Ask about the catacombs."}},
			{ID: "jiron-union", Title: "Jiron de la Union", Clue: "Stroll down Limas most famous pedestrian street. Find the statue of the liberator.", Hints: []string{"Look for San Martin."}},
			{ID: "muralla", Title: "Parque de la Muralla", Clue: "Follow the old city wall to the park along the Rimac river."},
		},
	})
	if err != nil {
		return fmt.Errorf("seeding demo hunt: %w", err)
	}

	created := 0
	for _, t := range demoTeams {
		existing, err := st.FindCodes(ctx, t.Code, gate.Scope{OrgID: demoOrg, HuntID: demoHunt})
		if err != nil {
			return fmt.Errorf("looking up demo code: %w", err)
		}
		if len(existing) > 0 {
			continue
		}
		if _, _, err := st.CreateTeam(ctx, t); err != nil {
			return fmt.Errorf("seeding demo team %s: %w", t.Name, err)
		}
		created++
	}

	logger.Info("demo hunt seeded", "org_id", demoOrg, "hunt_id", demoHunt, "teams_created", created)
	return nil
}
