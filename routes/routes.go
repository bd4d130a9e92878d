package routes

import (
	"net/http"

	"github.com/Dosada05/competition-engine/docs"
	"github.com/Dosada05/competition-engine/handlers"
	"github.com/Dosada05/competition-engine/metrics"
	"github.com/Dosada05/competition-engine/middleware"
	"github.com/Dosada05/competition-engine/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Metrics        *metrics.Manager
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	competitionHandler *handlers.CompetitionHandler,
	matchHandler *handlers.MatchHandler,
	ratingHandler *handlers.RatingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	staffOnly := middleware.Authorize(services.RoleAdmin, services.RoleOrganizer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}
	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.OpenAPI)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/ws/competitions/{competitionID}", webSocketHandler.ServeWs)

	router.Route("/competitions", func(r chi.Router) {
		r.Get("/", competitionHandler.ListCompetitions)

		r.With(authenticate, staffOnly).Post("/", competitionHandler.CreateCompetition)

		r.Route("/{competitionID}", func(r chi.Router) {
			r.Get("/", competitionHandler.GetCompetition)
			r.Get("/standings", competitionHandler.GetStandings)
			r.Get("/matches", matchHandler.ListMatches)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				r.Post("/participants", competitionHandler.RegisterParticipant)
				r.Post("/matches/{matchID}/start", matchHandler.StartMatch)
				r.Post("/matches/{matchID}/result", matchHandler.SubmitResult)

				r.Group(func(r chi.Router) {
					r.Use(staffOnly)

					r.Post("/status", competitionHandler.SetStatus)
					r.Put("/seeds", competitionHandler.AssignSeeds)
					r.Post("/bracket", competitionHandler.GenerateBracket)
					r.Post("/round-robin", competitionHandler.GenerateRoundRobin)
					r.Post("/playoffs", competitionHandler.GeneratePlayoffs)
					r.Post("/complete", competitionHandler.CompleteCompetition)
				})
			})
		})
	})

	router.Route("/players/{playerID}", func(r chi.Router) {
		r.Get("/ratings", ratingHandler.GetRating)
		r.Get("/stats", ratingHandler.GetPlayerStats)
	})
}
