package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

type VerifyRequest struct {
	Code              string `json:"code"`
	DeviceFingerprint string `json:"deviceFingerprint"`
	OrgID             string `json:"orgId,omitempty"`
	HuntID            string `json:"huntId,omitempty"`
}

type VerifyResponse struct {
	LockToken  string    `json:"lockToken"`
	TTLSeconds int       `json:"ttlSeconds"`
	ExpiresAt  time.Time `json:"expiresAt"`
	TeamID     string    `json:"teamId"`
	OrgID      string    `json:"orgId"`
	HuntID     string    `json:"huntId"`
}

func handleVerify(logger *slog.Logger, svc *gate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, hunt.CodeInvalidArgument, "invalid request body")
			return
		}

		adm, err := svc.Verify(r.Context(), req.Code, req.DeviceFingerprint, gate.Scope{
			OrgID:  req.OrgID,
			HuntID: req.HuntID,
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, VerifyResponse{
			LockToken:  adm.LockToken,
			TTLSeconds: adm.TTLSeconds,
			ExpiresAt:  adm.ExpiresAt,
			TeamID:     adm.TeamID,
			OrgID:      adm.OrgID,
			HuntID:     adm.HuntID,
		})
	}
}
