package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"team-coordinator/internal/domain/models"
)

type StatsRepo struct {
	storage *sqlx.DB
}

func NewStatsRepo(storage *sqlx.DB) *StatsRepo {
	return &StatsRepo{storage: storage}
}

// GetTeamStats aggregates over teams that are not expired at now.
func (r *StatsRepo) GetTeamStats(ctx context.Context, now time.Time) (*models.TeamStats, error) {
	const op = "repo.stats.GetTeamStats"

	query := `
		WITH alive AS (
			SELECT t.id, t.status, t.max_num, COUNT(ut.id) AS members
			FROM team t
			LEFT JOIN user_team ut ON ut.team_id = t.id
			WHERE t.expire_time IS NULL OR t.expire_time > $1
			GROUP BY t.id, t.status, t.max_num
		)
		SELECT
			COUNT(*) AS total_teams,
			COUNT(CASE WHEN status = 0 THEN 1 END) AS public_teams,
			COUNT(CASE WHEN status = 1 THEN 1 END) AS private_teams,
			COUNT(CASE WHEN status = 2 THEN 1 END) AS secret_teams,
			COALESCE(SUM(members), 0)::BIGINT AS total_memberships,
			COALESCE(AVG(members), 0)::FLOAT AS avg_members_per_team,
			COUNT(CASE WHEN members >= max_num THEN 1 END) AS full_teams
		FROM alive`

	var stats models.TeamStats
	if err := sqlx.GetContext(ctx, r.storage, &stats, query, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}
