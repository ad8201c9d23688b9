package handler

import (
	"log/slog"
	"net/http"

	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/http/v1/middleware"
	"team-coordinator/internal/http/v1/response"
	"team-coordinator/internal/service"
)

type MembershipHandler struct {
	teamService *service.TeamService
	log         *slog.Logger
}

func NewMembershipHandler(teamService *service.TeamService, log *slog.Logger) *MembershipHandler {
	return &MembershipHandler{
		teamService: teamService,
		log:         log,
	}
}

func (h *MembershipHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.membership.JoinTeam"

	log := h.log.With(slog.String("op", op))

	var req models.TeamJoin
	if !decode(w, r, log, &req) {
		return
	}

	if err := h.teamService.JoinTeam(r.Context(), &req, middleware.ActorFrom(r.Context())); err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, OKResponse{OK: true})
}

func (h *MembershipHandler) QuitTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.membership.QuitTeam"

	log := h.log.With(slog.String("op", op))

	var req models.TeamQuit
	if !decode(w, r, log, &req) {
		return
	}

	if err := h.teamService.QuitTeam(r.Context(), &req, middleware.ActorFrom(r.Context())); err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, OKResponse{OK: true})
}
