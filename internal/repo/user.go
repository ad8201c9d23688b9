package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/storage/postgresql"
)

// UserRepo is the user directory backed by the users table.
type UserRepo struct {
	storage *sqlx.DB
}

func NewUserRepo(storage *sqlx.DB) *UserRepo {
	return &UserRepo{storage: storage}
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "repo.user.GetByID"

	query := `
		SELECT id, username, user_account, avatar_url, gender, email, phone, user_role, create_time
		FROM users WHERE id = $1`

	var user models.User
	err := sqlx.GetContext(ctx, postgresql.Executor(ctx, r.storage), &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *UserRepo) IsAdmin(user *models.User) bool {
	return user != nil && user.Role == models.UserRoleAdmin
}

func (r *UserRepo) Insert(ctx context.Context, user *models.User) (int64, error) {
	const op = "repo.user.Insert"

	query := `
		INSERT INTO users (username, user_account, avatar_url, gender, email, phone, user_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := postgresql.Executor(ctx, r.storage).QueryRowxContext(ctx, query,
		user.Username, user.UserAccount, user.AvatarURL, user.Gender, user.Email, user.Phone, user.Role,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
