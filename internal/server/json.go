package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/huntgate/internal/hunt"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code hunt.Code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: string(code)})
}

// writeDomainError writes err with the status of its code. Internal
// failures are logged and their detail is not sent to the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := hunt.CodeOf(err)
	msg := "internal error"

	var domainErr *hunt.Error
	switch {
	case errors.As(err, &domainErr):
		msg = domainErr.Message
	case errors.Is(err, hunt.ErrNotFound):
		code = hunt.CodeNotFound
		msg = "not found"
	}

	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"code", string(code),
			"error", err,
		)
	}
	writeError(w, status, code, msg)
}
