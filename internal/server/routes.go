package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/huntgate/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := deps.Service
	broker := deps.Broker

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Huntgate API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify", handleVerify(logger, svc))
		r.Get("/events", handleEvents(logger, svc, broker))
		r.Get("/events/ws", handleWSEvents(logger, svc, broker))
		r.Get("/orgs/{orgID}/hunts/{huntID}/leaderboard", handleLeaderboard(logger, svc))

		// Team routes: Bearer lock token.
		r.Group(func(r chi.Router) {
			r.Use(lockTokenMiddleware(logger, svc))
			r.Get("/team", handleTeam())
			r.Route("/orgs/{orgID}/hunts/{huntID}/teams/{teamID}/stops", func(r chi.Router) {
				r.Get("/", handleStops(logger, svc))
				r.Post("/{stopID}/complete", handleCompleteStop(logger, svc))
				r.Post("/{stopID}/hint", handleRevealHint(logger, svc))
			})
		})

		// Admin routes: Bearer admin key.
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminKeyMiddleware(deps.AdminKeyHash))
			r.Get("/orgs/{orgID}/hunts/{huntID}", handleAdminGetHunt(logger, deps.Admin))
			r.Put("/orgs/{orgID}/hunts/{huntID}", handleAdminPutHunt(logger, deps.Admin))
			r.Post("/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/deactivate", handleAdminSetStopActive(logger, deps.Admin, false))
			r.Post("/orgs/{orgID}/hunts/{huntID}/stops/{stopID}/activate", handleAdminSetStopActive(logger, deps.Admin, true))
			r.Post("/orgs/{orgID}/hunts/{huntID}/teams", handleAdminCreateTeam(logger, deps.Admin))
			r.Post("/codes/{codeID}/deactivate", handleAdminDeactivateCode(logger, deps.Admin))
		})
	})
}
