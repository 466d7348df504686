package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes assembles the full HTTP surface.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/players/{id}", func(r chi.Router) {
			r.Get("/gods", h.GetPlayerGods)
			r.Get("/maps", h.GetPlayerMaps)
			r.Get("/partners", h.GetPlayerPartners)
			r.Get("/rivals", h.GetPlayerRivals)
			r.Get("/winstreak", h.GetPlayerWinStreak)
			r.Get("/elo", h.GetPlayerElo)
			r.With(h.APIKeyMiddleware).Post("/fetch", h.FetchPlayer)
		})

		r.Post("/matchup", h.PredictMatchup)
		r.Get("/stats", h.GetGlobalStats)
		r.With(h.APIKeyMiddleware).Post("/sync", h.Sync)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.ListTournaments)
			r.With(h.APIKeyMiddleware).Post("/", h.CreateTournament)
			r.Get("/{id}/matches", h.ListTournamentMatches)
			r.With(h.APIKeyMiddleware).Post("/{id}/matches", h.AddTournamentMatch)
		})

		r.With(h.APIKeyMiddleware).Post("/discord/planner", h.SendPlanner)
	})

	return r
}
