package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"team-coordinator/internal/http/v1/handler"
	"team-coordinator/internal/service"
)

type UserRouter struct {
	handler *handler.UserHandler
}

func NewUserRouter(userService *service.UserService, log *slog.Logger) *UserRouter {
	return &UserRouter{
		handler: handler.NewUserHandler(userService, log),
	}
}

func (ur *UserRouter) SetupRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/me", ur.handler.Me)
	})
}
