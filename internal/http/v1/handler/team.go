package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/http/v1/middleware"
	"team-coordinator/internal/http/v1/response"
	"team-coordinator/internal/lib/logger/sl"
	"team-coordinator/internal/service"
)

type (
	CreateTeamRequest struct {
		Name        string     `json:"name" validate:"required"`
		Description string     `json:"description"`
		MaxNum      int        `json:"max_num" validate:"required"`
		ExpireTime  *time.Time `json:"expire_time"`
		Status      int        `json:"status"`
		Password    string     `json:"password"`
	}

	CreateTeamResponse struct {
		TeamID int64 `json:"team_id"`
	}

	DeleteTeamRequest struct {
		ID int64 `json:"id" validate:"required,gt=0"`
	}

	TeamResponse struct {
		Team models.TeamUserView `json:"team"`
	}

	TeamListResponse struct {
		Teams []models.TeamUserView `json:"teams"`
	}

	OKResponse struct {
		OK bool `json:"ok"`
	}
)

var validate = validator.New()

type TeamHandler struct {
	teamService *service.TeamService
	log         *slog.Logger
}

func NewTeamHandler(teamService *service.TeamService, log *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		log:         log,
	}
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.CreateTeam"

	log := h.log.With(slog.String("op", op))

	var req CreateTeamRequest
	if !decode(w, r, log, &req) {
		return
	}

	id, err := h.teamService.CreateTeam(r.Context(), &models.TeamCreate{
		Name:        req.Name,
		Description: req.Description,
		MaxNum:      req.MaxNum,
		ExpireTime:  req.ExpireTime,
		Status:      req.Status,
		Password:    req.Password,
	}, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusCreated, CreateTeamResponse{TeamID: id})
	log.Info("team created", slog.Int64("team_id", id))
}

func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.UpdateTeam"

	log := h.log.With(slog.String("op", op))

	var req models.TeamUpdate
	if !decode(w, r, log, &req) {
		return
	}

	if err := h.teamService.UpdateTeam(r.Context(), &req, middleware.ActorFrom(r.Context())); err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, OKResponse{OK: true})
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.DeleteTeam"

	log := h.log.With(slog.String("op", op))

	var req DeleteTeamRequest
	if !decode(w, r, log, &req) {
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), req.ID, middleware.ActorFrom(r.Context())); err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, OKResponse{OK: true})
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeam"

	log := h.log.With(slog.String("op", op))

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid team id", slog.String("id", r.URL.Query().Get("id")))
		response.Error(w, log, apperrors.ErrTeamIDInvalid)
		return
	}

	view, err := h.teamService.GetTeam(r.Context(), id, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, TeamResponse{Team: *view})
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListTeams"

	log := h.log.With(slog.String("op", op))

	query, err := parseTeamQuery(r)
	if err != nil {
		log.Warn("invalid query", sl.Err(err))
		response.Error(w, log, err)
		return
	}

	teams, err := h.teamService.ListTeams(r.Context(), query, middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, TeamListResponse{Teams: teams})
}

func (h *TeamHandler) ListOwnedTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListOwnedTeams"

	log := h.log.With(slog.String("op", op))

	teams, err := h.teamService.ListOwnedTeams(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, TeamListResponse{Teams: teams})
}

func (h *TeamHandler) ListJoinedTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListJoinedTeams"

	log := h.log.With(slog.String("op", op))

	teams, err := h.teamService.ListJoinedTeams(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		response.Error(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, TeamListResponse{Teams: teams})
}

// parseTeamQuery reads the listing filters from the URL query string.
func parseTeamQuery(r *http.Request) (*models.TeamQuery, error) {
	q := r.URL.Query()
	query := &models.TeamQuery{
		SearchText:  q.Get("search_text"),
		Name:        q.Get("name"),
		Description: q.Get("description"),
	}

	var err error
	if query.ID, err = optionalInt64(q.Get("id")); err != nil {
		return nil, apperrors.Validation("id must be an integer")
	}
	if query.UserID, err = optionalInt64(q.Get("user_id")); err != nil {
		return nil, apperrors.Validation("user_id must be an integer")
	}
	maxNum, err := optionalInt64(q.Get("max_num"))
	if err != nil {
		return nil, apperrors.Validation("max_num must be an integer")
	}
	query.MaxNum = int(maxNum)

	if raw := q.Get("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.Validation("status must be an integer")
		}
		query.Status = &status
	}

	if raw := q.Get("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, apperrors.Validation("ids must be a comma separated list of integers")
			}
			query.IDs = append(query.IDs, id)
		}
	}

	return query, nil
}

func optionalInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// decode reads a JSON body into dst and validates its struct tags. On failure
// it writes the error response and returns false.
func decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Warn("invalid request body", sl.Err(err))
		response.Error(w, log, apperrors.Validation("invalid request body"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		log.Warn("request failed validation", sl.Err(err))
		response.Error(w, log, apperrors.Validation(err.Error()))
		return false
	}

	return true
}
