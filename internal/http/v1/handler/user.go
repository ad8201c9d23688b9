package handler

import (
	"log/slog"
	"net/http"

	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/http/v1/middleware"
	"team-coordinator/internal/http/v1/response"
	"team-coordinator/internal/service"
)

type CurrentUserResponse struct {
	User models.CurrentUser `json:"user"`
}

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.Me"

	log := h.log.With(slog.String("op", op))

	me, err := h.userService.CurrentUser(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, CurrentUserResponse{User: *me})
}
