package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("FitQuest API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", handleCreateSession(deps.Players, deps.Tokens))

		// Player routes, authenticated by session token.
		r.Group(func(r chi.Router) {
			r.Use(playerMiddleware(deps.Tokens, deps.Players))

			r.Route("/game", func(r chi.Router) {
				r.Get("/state", handleGameState())
				r.Post("/capture/start", handleStartCapture())
				r.Post("/capture/cancel", handleCancelCapture())
				r.Post("/capture/check", handleCheckGrace())
				r.Post("/capture/complete", handleCompleteCapture())
				r.Post("/steps", handleAddSteps())
				r.Post("/geofence", handleGeofence())
				r.Post("/device", handleDeviceReading())
				r.Post("/zones/{zoneID}/challenge", handleChallenge())
				r.Post("/distance", handleSyncDistance())
				r.Post("/milestones/check", handleCheckMilestones())
				r.Post("/milestones/{milestoneID}/redeem", handleRedeem())
				r.Get("/events", handleEvents(deps.Broker))
				r.Get("/ws", handleLiveSocket(logger, deps.Broker))
			})

			r.Get("/prefs", handleGetPrefs(deps.Store))
			r.Put("/prefs", handlePutPrefs(deps.Store))
		})

		r.Route("/admin/players/{playerID}", func(r chi.Router) {
			r.Use(adminAuthMiddleware(deps.Admin))
			r.Patch("/stats", handleAdminPatchStats(deps.Players))
			r.Post("/milestones/{milestoneID}/unlock", handleAdminUnlockMilestone(deps.Players))
			r.Post("/activities", handleAdminAddActivity(deps.Players))
		})
	})
}
