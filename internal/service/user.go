package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
)

// UserDirectory resolves users. It is owned by the account system.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	IsAdmin(user *models.User) bool
}

type MembershipCounter interface {
	CountByUser(ctx context.Context, userID int64) (int, error)
}

type UserService struct {
	log     *slog.Logger
	users   UserDirectory
	members MembershipCounter
}

func NewUserService(
	log *slog.Logger,
	users UserDirectory,
	members MembershipCounter) *UserService {
	return &UserService{
		log:     log,
		users:   users,
		members: members,
	}
}

// Authenticate resolves the user a verified token was issued to. An unknown
// user means the token no longer names an account.
func (s *UserService) Authenticate(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.user.Authenticate"

	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn("token names unknown user")
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrInvalidToken)
		}
		err = storeErr(op, err)
		logFailure(log, "failed to resolve user", err)
		return nil, err
	}

	return user, nil
}

func (s *UserService) CurrentUser(ctx context.Context, actor *models.User) (*models.CurrentUser, error) {
	const op = "service.user.CurrentUser"

	log := s.log.With(slog.String("op", op))

	if actor == nil {
		log.Warn("caller is not logged in")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	count, err := s.members.CountByUser(ctx, actor.ID)
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to count memberships", err)
		return nil, err
	}

	return &models.CurrentUser{
		UserProfile: *actor.PublicProfile(),
		IsAdmin:     s.users.IsAdmin(actor),
		TeamCount:   count,
	}, nil
}
