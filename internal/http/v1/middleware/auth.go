package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/http/v1/response"
	"team-coordinator/internal/lib/jwt"
	"team-coordinator/internal/lib/logger/sl"
)

type actorKey struct{}

// UserResolver turns the user id of a verified token into a user.
type UserResolver interface {
	Authenticate(ctx context.Context, userID int64) (*models.User, error)
}

// WithActor returns a copy of ctx carrying the acting user.
func WithActor(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, actorKey{}, user)
}

// ActorFrom returns the acting user, or nil for anonymous requests.
func ActorFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(actorKey{}).(*models.User)
	return user
}

// Auth resolves a bearer token to the acting user. Requests without an
// Authorization header pass through anonymously; a bad token is rejected.
func Auth(log *slog.Logger, secret string, users UserResolver) func(http.Handler) http.Handler {
	const op = "middleware.Auth"

	log = log.With(slog.String("op", op))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				log.Warn("malformed authorization header")
				response.Error(w, log, apperrors.ErrInvalidToken)
				return
			}

			claims, err := jwt.Parse(strings.TrimSpace(token), secret)
			if err != nil {
				log.Warn("invalid token", sl.Err(err))
				response.Error(w, log, apperrors.ErrInvalidToken)
				return
			}

			user, err := users.Authenticate(r.Context(), claims.UserID)
			if err != nil {
				response.Error(w, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user)))
		})
	}
}
