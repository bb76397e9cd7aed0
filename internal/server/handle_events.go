package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

// streamToken reads the lock token from the query string, since browser
// EventSource and WebSocket clients cannot set headers.
func streamToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearerToken(r)
}

func handleEvents(logger *slog.Logger, svc *gate.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := streamToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, hunt.CodeTokenInvalid, "token query parameter required")
			return
		}

		claims, err := svc.CurrentTeam(token)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, hunt.CodeUnknown, "streaming not supported")
			return
		}

		// Subscribe before the headers go out so no event published after
		// the client sees 200 is missed.
		ch := broker.Subscribe(claims.TeamID)
		defer broker.Unsubscribe(claims.TeamID, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		// The stream ends with the token.
		expired := time.NewTimer(time.Until(claims.ExpiresAt))
		defer expired.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-expired.C:
				fmt.Fprintf(w, "event: expired\ndata: {}\n\n")
				flusher.Flush()
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
