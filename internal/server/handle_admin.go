package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/huntgate/internal/hunt"
	"github.com/playperu/huntgate/internal/store"
)

// AdminStore provisions and inspects hunt configuration.
type AdminStore interface {
	Hunt(ctx context.Context, orgID, huntID string) (hunt.Hunt, error)
	Stops(ctx context.Context, orgID, huntID string) ([]hunt.Stop, error)
	UpsertHunt(ctx context.Context, in store.HuntInput) error
	SetStopActive(ctx context.Context, orgID, huntID, stopID string, active bool) error
	CreateTeam(ctx context.Context, in store.TeamInput) (hunt.Team, hunt.TeamCode, error)
	DeactivateCode(ctx context.Context, codeID string) error
}

type AdminStopRequest struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Clue     string   `json:"clue,omitempty"`
	Hints    []string `json:"hints,omitempty"`
	Position int      `json:"position,omitempty"`
}

type AdminHuntRequest struct {
	OrgName      string             `json:"orgName,omitempty"`
	Name         string             `json:"name"`
	Strategy     string             `json:"strategy"`
	SeedStrategy string             `json:"seedStrategy,omitempty"`
	Seed         int64              `json:"seed,omitempty"`
	Stops        []AdminStopRequest `json:"stops"`
}

type AdminTeamRequest struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	MaxUses *int   `json:"maxUses,omitempty"`
}

type AdminTeamResponse struct {
	TeamID  string `json:"teamId"`
	CodeID  string `json:"codeId"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	MaxUses *int   `json:"maxUses,omitempty"`
}

type AdminStopResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Clue     string   `json:"clue,omitempty"`
	Hints    []string `json:"hints"`
	Position int      `json:"position"`
	Active   bool     `json:"active"`
}

type AdminHuntResponse struct {
	OrgID        string              `json:"orgId"`
	HuntID       string              `json:"huntId"`
	Name         string              `json:"name"`
	Strategy     string              `json:"strategy"`
	SeedStrategy string              `json:"seedStrategy,omitempty"`
	Seed         int64               `json:"seed"`
	Stops        []AdminStopResponse `json:"stops"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func handleAdminPutHunt(logger *slog.Logger, admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminHuntRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, hunt.CodeInvalidArgument, "invalid request body")
			return
		}
		if req.Strategy == "" {
			req.Strategy = string(hunt.StrategyFixed)
		}
		strategy, err := hunt.ParseStrategy(req.Strategy, req.SeedStrategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, hunt.CodeInvalidArgument, err.Error())
			return
		}

		in := store.HuntInput{
			OrgID:    chi.URLParam(r, "orgID"),
			OrgName:  req.OrgName,
			HuntID:   chi.URLParam(r, "huntID"),
			Name:     req.Name,
			Strategy: strategy,
			Seed:     req.Seed,
		}
		for _, s := range req.Stops {
			in.Stops = append(in.Stops, store.StopInput{
				ID:       s.ID,
				Title:    s.Title,
				Clue:     s.Clue,
				Hints:    s.Hints,
				Position: s.Position,
			})
		}

		if err := admin.UpsertHunt(r.Context(), in); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.InfoContext(r.Context(), "hunt configured",
			"org_id", in.OrgID,
			"hunt_id", in.HuntID,
			"strategy", strategy.String(),
			"stops", len(in.Stops),
		)
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}

func handleAdminCreateTeam(logger *slog.Logger, admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, hunt.CodeInvalidArgument, "invalid request body")
			return
		}

		team, code, err := admin.CreateTeam(r.Context(), store.TeamInput{
			OrgID:   chi.URLParam(r, "orgID"),
			HuntID:  chi.URLParam(r, "huntID"),
			Name:    req.Name,
			Code:    req.Code,
			MaxUses: req.MaxUses,
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.InfoContext(r.Context(), "team created", "team_id", team.ID, "hunt_id", team.HuntID)
		writeJSON(w, http.StatusCreated, AdminTeamResponse{
			TeamID:  team.ID,
			CodeID:  code.ID,
			Code:    code.Code,
			Name:    team.Name,
			MaxUses: code.MaxUses,
		})
	}
}

func handleAdminDeactivateCode(logger *slog.Logger, admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codeID := chi.URLParam(r, "codeID")
		if err := admin.DeactivateCode(r.Context(), codeID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.InfoContext(r.Context(), "team code deactivated", "code_id", codeID)
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}

func handleAdminGetHunt(logger *slog.Logger, admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, huntID := chi.URLParam(r, "orgID"), chi.URLParam(r, "huntID")
		h, err := admin.Hunt(r.Context(), orgID, huntID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		stops, err := admin.Stops(r.Context(), orgID, huntID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		resp := AdminHuntResponse{
			OrgID:        h.OrgID,
			HuntID:       h.ID,
			Name:         h.Name,
			Strategy:     string(h.Strategy.Kind),
			SeedStrategy: string(h.Strategy.Seed),
			Seed:         h.Seed,
			Stops:        make([]AdminStopResponse, 0, len(stops)),
		}
		for _, st := range stops {
			resp.Stops = append(resp.Stops, AdminStopResponse{
				ID:       st.ID,
				Title:    st.Title,
				Clue:     st.Clue,
				Hints:    st.Hints,
				Position: st.DefaultPosition,
				Active:   st.Active,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminSetStopActive(logger *slog.Logger, admin AdminStore, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, huntID, stopID := chi.URLParam(r, "orgID"), chi.URLParam(r, "huntID"), chi.URLParam(r, "stopID")
		if err := admin.SetStopActive(r.Context(), orgID, huntID, stopID, active); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.InfoContext(r.Context(), "stop updated",
			"org_id", orgID,
			"hunt_id", huntID,
			"stop_id", stopID,
			"active", active,
		)
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
