package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"team-coordinator/internal/http/v1/handler"
	"team-coordinator/internal/service"
)

type StatsRouter struct {
	handler *handler.StatsHandler
}

func NewStatsRouter(statsService *service.StatsService, log *slog.Logger) *StatsRouter {
	return &StatsRouter{
		handler: handler.NewStatsHandler(statsService, log),
	}
}

func (sr *StatsRouter) SetupRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/teams", sr.handler.GetTeamStats)
	})
}
