package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"team-coordinator/internal/http/v1/handler"
	"team-coordinator/internal/service"
)

type TeamRouter struct {
	teams       *handler.TeamHandler
	memberships *handler.MembershipHandler
}

func NewTeamRouter(teamService *service.TeamService, log *slog.Logger) *TeamRouter {
	return &TeamRouter{
		teams:       handler.NewTeamHandler(teamService, log),
		memberships: handler.NewMembershipHandler(teamService, log),
	}
}

func (tr *TeamRouter) SetupRoutes(r chi.Router) {
	r.Route("/team", func(r chi.Router) {
		r.Post("/add", tr.teams.CreateTeam)
		r.Post("/update", tr.teams.UpdateTeam)
		r.Post("/delete", tr.teams.DeleteTeam)
		r.Post("/join", tr.memberships.JoinTeam)
		r.Post("/quit", tr.memberships.QuitTeam)

		r.Get("/get", tr.teams.GetTeam)
		r.Get("/list", tr.teams.ListTeams)
		r.Get("/list/my/create", tr.teams.ListOwnedTeams)
		r.Get("/list/my/join", tr.teams.ListJoinedTeams)
	})
}
