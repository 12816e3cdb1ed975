package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bracketforge/bracketforge/handlers"
	"github.com/bracketforge/bracketforge/middleware"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Rating     *handlers.RatingHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	router.Route("/tournaments", func(r chi.Router) {
		// Public read surface for bracket viewers.
		r.Get("/", h.Tournament.GetByCode)
		r.Get("/list", h.Tournament.ListByGuild)
		r.Get("/{tournamentID}", h.Tournament.GetSnapshot)
		r.Get("/{tournamentID}/entries", h.Tournament.ListEntries)

		// Registration requires an authenticated player.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/entries", h.Tournament.RegisterEntry)
		})

		// Lifecycle management is restricted to tournament admins.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", h.Tournament.Create)
			r.Post("/{tournamentID}/open", h.Tournament.OpenRegistration)
			r.Post("/{tournamentID}/close", h.Tournament.CloseRegistration)
			r.Post("/{tournamentID}/start", h.Tournament.Start)
			r.Post("/{tournamentID}/cancel", h.Tournament.Cancel)
			r.Post("/{tournamentID}/archive", h.Tournament.Archive)
			r.Post("/{tournamentID}/dummies", h.Tournament.AddDummyEntries)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/report", h.Match.ReportResult)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/{matchID}/override", h.Match.AdminOverride)
		})
	})

	router.Route("/players/{playerID}", func(r chi.Router) {
		r.Get("/ratings", h.Rating.GetPlayerRatings)
		r.Get("/history", h.Rating.GetPlayerHistory)
	})

	router.Get("/ws/tournaments/{code}", h.WebSocket.ServeWs)

	return router
}
