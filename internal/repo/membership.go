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

const membershipColumns = `id, user_id, team_id, join_time, create_time`

type MembershipRepo struct {
	storage *sqlx.DB
}

func NewMembershipRepo(storage *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{storage: storage}
}

func (r *MembershipRepo) Insert(ctx context.Context, m *models.Membership) (int64, error) {
	const op = "repo.membership.Insert"

	query := `
		INSERT INTO user_team (user_id, team_id, join_time, create_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := postgresql.Executor(ctx, r.storage).QueryRowxContext(ctx, query,
		m.UserID, m.TeamID, m.JoinTime, m.CreateTime,
	).Scan(&id)
	if err != nil {
		if postgresql.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, apperrors.ErrAlreadyJoined)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *MembershipRepo) Get(ctx context.Context, userID, teamID int64) (*models.Membership, error) {
	const op = "repo.membership.Get"

	query := `SELECT ` + membershipColumns + ` FROM user_team WHERE user_id = $1 AND team_id = $2`

	var m models.Membership
	err := sqlx.GetContext(ctx, postgresql.Executor(ctx, r.storage), &m, query, userID, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}

func (r *MembershipRepo) Delete(ctx context.Context, userID, teamID int64) error {
	const op = "repo.membership.Delete"

	res, err := postgresql.Executor(ctx, r.storage).ExecContext(ctx,
		`DELETE FROM user_team WHERE user_id = $1 AND team_id = $2`, userID, teamID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res, apperrors.ErrMembershipNotFound)
}

func (r *MembershipRepo) DeleteByTeam(ctx context.Context, teamID int64) (int64, error) {
	const op = "repo.membership.DeleteByTeam"

	res, err := postgresql.Executor(ctx, r.storage).ExecContext(ctx,
		`DELETE FROM user_team WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *MembershipRepo) CountByTeam(ctx context.Context, teamID int64) (int, error) {
	const op = "repo.membership.CountByTeam"

	var count int
	err := sqlx.GetContext(ctx, postgresql.Executor(ctx, r.storage), &count,
		`SELECT COUNT(*) FROM user_team WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *MembershipRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	const op = "repo.membership.CountByUser"

	var count int
	err := sqlx.GetContext(ctx, postgresql.Executor(ctx, r.storage), &count,
		`SELECT COUNT(*) FROM user_team WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// ListByTeam returns the team's memberships, most senior first.
// A non-positive limit returns all of them.
func (r *MembershipRepo) ListByTeam(ctx context.Context, teamID int64, limit int) ([]models.Membership, error) {
	const op = "repo.membership.ListByTeam"

	query := `SELECT ` + membershipColumns + ` FROM user_team WHERE team_id = $1 ORDER BY join_time ASC, id ASC`
	args := []interface{}{teamID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	members := make([]models.Membership, 0)
	if err := sqlx.SelectContext(ctx, postgresql.Executor(ctx, r.storage), &members, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return members, nil
}

func (r *MembershipRepo) ListTeamIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	const op = "repo.membership.ListTeamIDsByUser"

	ids := make([]int64, 0)
	err := sqlx.SelectContext(ctx, postgresql.Executor(ctx, r.storage), &ids,
		`SELECT team_id FROM user_team WHERE user_id = $1 ORDER BY join_time ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}
