package api

import (
	"net/http"
	"time"

	"potd_engine/internal/api/handler"
	"potd_engine/internal/api/middleware"
	"potd_engine/internal/app/service"
	"potd_engine/internal/common/security"
	"potd_engine/internal/platform/monitoring"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Auth        *service.AuthService
	Problems    *service.ProblemService
	Submissions *service.SubmissionService
	Advance     *service.AdvanceService
	Admin       *service.AdminService
	Ratings     *service.RatingService
	Leaderboard *service.LeaderboardService
	Users       *service.UserService
}

func NewRouter(svc Services, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(monitoring.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", handler.BotSecretHeader},
		MaxAge:         300,
	}))

	// Puts the bearer token, if any, in the context; Authenticator enforces it.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", monitoring.PrometheusHandler())

	adminHandler := handler.NewAdminHandler(svc.Admin, svc.Advance)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(svc.Auth).RegisterRoutes)
		adminHandler.RegisterStatusRoute(v1)
		v1.Route("/seasons", handler.NewSeasonHandler(svc.Leaderboard).RegisterRoutes)

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticator)
			authed.Route("/submissions", handler.NewSubmissionHandler(svc.Submissions).RegisterRoutes)
			authed.Route("/problems", handler.NewProblemHandler(svc.Problems).RegisterRoutes)
			authed.Route("/ratings", handler.NewRatingHandler(svc.Ratings).RegisterRoutes)
			authed.Route("/users", handler.NewUserHandler(svc.Users).RegisterRoutes)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.Authenticator)
			admin.Use(middleware.AdminOnly)
			adminHandler.RegisterRoutes(admin)
		})
	})

	return r
}
