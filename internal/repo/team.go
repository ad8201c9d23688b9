package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/storage/postgresql"
)

const teamColumns = `id, name, description, max_num, expire_time, user_id, status, password, create_time, update_time`

type TeamRepo struct {
	storage *sqlx.DB
}

func NewTeamRepo(storage *sqlx.DB) *TeamRepo {
	return &TeamRepo{storage: storage}
}

func (r *TeamRepo) Insert(ctx context.Context, team *models.Team) (int64, error) {
	const op = "repo.team.Insert"

	query := `
		INSERT INTO team (name, description, max_num, expire_time, user_id, status, password, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id int64
	err := postgresql.Executor(ctx, r.storage).QueryRowxContext(ctx, query,
		team.Name, team.Description, team.MaxNum, team.ExpireTime, team.UserID,
		team.Status, team.Password, team.CreateTime, team.UpdateTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	const op = "repo.team.GetByID"

	query := `SELECT ` + teamColumns + ` FROM team WHERE id = $1`

	var team models.Team
	err := sqlx.GetContext(ctx, postgresql.Executor(ctx, r.storage), &team, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &team, nil
}

func (r *TeamRepo) UpdateByID(ctx context.Context, team *models.Team) error {
	const op = "repo.team.UpdateByID"

	query := `
		UPDATE team SET
			name = $1,
			description = $2,
			max_num = $3,
			expire_time = $4,
			user_id = $5,
			status = $6,
			password = $7,
			update_time = $8
		WHERE id = $9`

	res, err := postgresql.Executor(ctx, r.storage).ExecContext(ctx, query,
		team.Name, team.Description, team.MaxNum, team.ExpireTime, team.UserID,
		team.Status, team.Password, team.UpdateTime, team.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res, apperrors.ErrTeamNotFound)
}

func (r *TeamRepo) DeleteByID(ctx context.Context, id int64) error {
	const op = "repo.team.DeleteByID"

	res, err := postgresql.Executor(ctx, r.storage).ExecContext(ctx, `DELETE FROM team WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res, apperrors.ErrTeamNotFound)
}

func (r *TeamRepo) Query(ctx context.Context, filter models.TeamFilter) ([]models.Team, error) {
	const op = "repo.team.Query"

	where, args := buildTeamWhere(filter)
	exec := postgresql.Executor(ctx, r.storage)

	query, args, err := sqlx.In(`SELECT `+teamColumns+` FROM team`+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	teams := make([]models.Team, 0)
	if err := sqlx.SelectContext(ctx, exec, &teams, exec.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return teams, nil
}

func (r *TeamRepo) Count(ctx context.Context, filter models.TeamFilter) (int, error) {
	const op = "repo.team.Count"

	where, args := buildTeamWhere(filter)
	exec := postgresql.Executor(ctx, r.storage)

	query, args, err := sqlx.In(`SELECT COUNT(*) FROM team`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := sqlx.GetContext(ctx, exec, &count, exec.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// buildTeamWhere renders filter with '?' placeholders for sqlx.In and Rebind.
func buildTeamWhere(f models.TeamFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if f.ID > 0 {
		conds = append(conds, "id = ?")
		args = append(args, f.ID)
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN (?)")
		args = append(args, f.IDs)
	}
	if f.MaxNum > 0 {
		conds = append(conds, "max_num = ?")
		args = append(args, f.MaxNum)
	}
	if text := strings.TrimSpace(f.SearchText); text != "" {
		conds = append(conds, "(name LIKE ? OR description LIKE ?)")
		args = append(args, likePattern(text), likePattern(text))
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, likePattern(name))
	}
	if desc := strings.TrimSpace(f.Description); desc != "" {
		conds = append(conds, "description LIKE ?")
		args = append(args, likePattern(desc))
	}
	if f.UserID > 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.AliveAt != nil {
		conds = append(conds, "(expire_time IS NULL OR expire_time > ?)")
		args = append(args, *f.AliveAt)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func expectAffected(op string, res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}
