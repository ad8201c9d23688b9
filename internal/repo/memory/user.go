package memory

import (
	"context"
	"fmt"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
)

type UserRepo struct {
	s *Store
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "repo.memory.user.GetByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	return &user, nil
}

func (r *UserRepo) IsAdmin(user *models.User) bool {
	return user != nil && user.Role == models.UserRoleAdmin
}
