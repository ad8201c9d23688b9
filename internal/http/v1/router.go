package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"team-coordinator/internal/http/v1/middleware"
	"team-coordinator/internal/http/v1/router"
	"team-coordinator/internal/service"
)

type Router interface {
	SetupRoutes(r chi.Router)
}

type RouterDependencies struct {
	TeamService  *service.TeamService
	UserService  *service.UserService
	StatsService *service.StatsService
	JWTSecret    string
	// Registry receives HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry
}

func SetupRoutes(r chi.Router, deps *RouterDependencies, log *slog.Logger) {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if deps.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(deps.Registry).Handler)
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(log, deps.JWTSecret, deps.UserService))

		routers := []Router{
			router.NewTeamRouter(deps.TeamService, log),
			router.NewUserRouter(deps.UserService, log),
			router.NewStatsRouter(deps.StatsService, log),
		}

		for _, serviceRouter := range routers {
			serviceRouter.SetupRoutes(r)
		}
	})
}
