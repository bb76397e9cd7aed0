package server

import (
	"net/http"
	"time"
)

type TeamResponse struct {
	TeamID    string    `json:"teamId"`
	OrgID     string    `json:"orgId"`
	HuntID    string    `json:"huntId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func handleTeam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		writeJSON(w, http.StatusOK, TeamResponse{
			TeamID:    claims.TeamID,
			OrgID:     claims.OrgID,
			HuntID:    claims.HuntID,
			ExpiresAt: claims.ExpiresAt,
		})
	}
}
