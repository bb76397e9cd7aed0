package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

type StandingResponse struct {
	TeamID          string     `json:"teamId"`
	TeamName        string     `json:"teamName"`
	Completed       int        `json:"completed"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}

func handleLeaderboard(logger *slog.Logger, svc *gate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID := chi.URLParam(r, "orgID")
		huntID := chi.URLParam(r, "huntID")

		standings, err := retryRead(r.Context(), func() ([]hunt.TeamStanding, error) {
			return svc.Leaderboard(r.Context(), orgID, huntID)
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		resp := make([]StandingResponse, len(standings))
		for i, s := range standings {
			resp[i] = StandingResponse{
				TeamID:          s.TeamID,
				TeamName:        s.TeamName,
				Completed:       s.Completed,
				LastCompletedAt: s.LastCompletedAt,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
