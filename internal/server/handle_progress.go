package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

type CompleteStopRequest struct {
	PhotoRef string `json:"photoRef,omitempty"`
}

type ProgressResponse struct {
	StopID        string     `json:"stopId"`
	Done          bool       `json:"done"`
	HintsRevealed int        `json:"hintsRevealed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PhotoRef      string     `json:"photoRef,omitempty"`
}

type HintResponse struct {
	Hint     string           `json:"hint"`
	Progress ProgressResponse `json:"progress"`
}

func progressResponse(rec hunt.ProgressRecord) ProgressResponse {
	return ProgressResponse{
		StopID:        rec.StopID,
		Done:          rec.Done,
		HintsRevealed: rec.HintsRevealed,
		CompletedAt:   rec.CompletedAt,
		PhotoRef:      rec.PhotoRef,
	}
}

func handleCompleteStop(logger *slog.Logger, svc *gate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteStopRequest
		// The body is optional.
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, hunt.CodeInvalidArgument, "invalid request body")
			return
		}

		rec, err := svc.CompleteStop(r.Context(), claimsFrom(r),
			chi.URLParam(r, "orgID"),
			chi.URLParam(r, "teamID"),
			chi.URLParam(r, "huntID"),
			chi.URLParam(r, "stopID"),
			req.PhotoRef,
		)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, progressResponse(rec))
	}
}

func handleRevealHint(logger *slog.Logger, svc *gate.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hint, rec, err := svc.RevealHint(r.Context(), claimsFrom(r),
			chi.URLParam(r, "orgID"),
			chi.URLParam(r, "teamID"),
			chi.URLParam(r, "huntID"),
			chi.URLParam(r, "stopID"),
		)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, HintResponse{Hint: hint, Progress: progressResponse(rec)})
	}
}
