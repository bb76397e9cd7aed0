package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

// handleWSEvents streams the same progress events as handleEvents over a
// WebSocket. Client messages are read and discarded.
func handleWSEvents(logger *slog.Logger, svc *gate.Service, broker *Broker) http.HandlerFunc {
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

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithDeadline(r.Context(), claims.ExpiresAt)
		defer cancel()
		// CloseRead cancels ctx when the client goes away.
		ctx = conn.CloseRead(ctx)

		ch := broker.Subscribe(claims.TeamID)
		defer broker.Unsubscribe(claims.TeamID, ch)

		for {
			select {
			case <-ctx.Done():
				if time.Now().After(claims.ExpiresAt) {
					conn.Close(websocket.StatusPolicyViolation, "lock token expired")
					return
				}
				logger.Debug("websocket stream ended", "team_id", claims.TeamID)
				return
			case data := <-ch:
				wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
				err := conn.Write(wctx, websocket.MessageText, data)
				wcancel()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
