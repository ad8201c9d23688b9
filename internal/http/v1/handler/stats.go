package handler

import (
	"log/slog"
	"net/http"

	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/http/v1/response"
	"team-coordinator/internal/service"
)

type TeamStatsResponse struct {
	Stats models.TeamStats `json:"stats"`
}

type StatsHandler struct {
	statsService *service.StatsService
	log          *slog.Logger
}

func NewStatsHandler(statsService *service.StatsService, log *slog.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		log:          log,
	}
}

func (h *StatsHandler) GetTeamStats(w http.ResponseWriter, r *http.Request) {
	const op = "handler.stats.GetTeamStats"

	log := h.log.With(slog.String("op", op))

	log.Info("handling team stats request")

	stats, err := h.statsService.GetTeamStats(r.Context())
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, TeamStatsResponse{Stats: *stats})
	log.Info("team stats returned",
		slog.Int("total_teams", stats.TotalTeams),
		slog.Int("total_memberships", stats.TotalMemberships))
}
