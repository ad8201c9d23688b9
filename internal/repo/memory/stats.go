package memory

import (
	"context"
	"fmt"
	"time"

	"team-coordinator/internal/domain/models"
)

type StatsRepo struct {
	s *Store
}

func (r *StatsRepo) GetTeamStats(ctx context.Context, now time.Time) (*models.TeamStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.memory.stats.GetTeamStats: %w", err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	counts := make(map[int64]int, len(r.s.teams))
	for _, m := range r.s.memberships {
		counts[m.TeamID]++
	}

	var stats models.TeamStats
	for id, team := range r.s.teams {
		if team.ExpiredAt(now) {
			continue
		}
		stats.TotalTeams++
		switch team.Status {
		case models.TeamStatusPublic:
			stats.PublicTeams++
		case models.TeamStatusPrivate:
			stats.PrivateTeams++
		case models.TeamStatusSecret:
			stats.SecretTeams++
		}
		stats.TotalMemberships += counts[id]
		if counts[id] >= team.MaxNum {
			stats.FullTeams++
		}
	}

	if stats.TotalTeams > 0 {
		stats.AvgMembersPerTeam = float64(stats.TotalMemberships) / float64(stats.TotalTeams)
	}

	return &stats, nil
}
