package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/huntgate/internal/gate"
)

type StopResponse struct {
	StopID    string   `json:"stopId"`
	Title     string   `json:"title"`
	Clue      string   `json:"clue"`
	Hints     []string `json:"hints"`
	HintCount int      `json:"hintCount"`
	Position  int      `json:"position"`
	Completed bool     `json:"completed"`
}

func handleStops(logger *slog.Logger, svc *gate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID := chi.URLParam(r, "orgID")
		huntID := chi.URLParam(r, "huntID")
		teamID := chi.URLParam(r, "teamID")
		claims := claimsFrom(r)

		stops, err := retryRead(r.Context(), func() ([]gate.OrderedStop, error) {
			return svc.OrderedStops(r.Context(), claims, orgID, teamID, huntID)
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		resp := make([]StopResponse, len(stops))
		for i, s := range stops {
			resp[i] = StopResponse{
				StopID:    s.StopID,
				Title:     s.Title,
				Clue:      s.Clue,
				Hints:     s.Hints,
				HintCount: s.HintCount,
				Position:  s.Position,
				Completed: s.Completed,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
