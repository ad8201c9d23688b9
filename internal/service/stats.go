package service

import (
	"context"
	"log/slog"
	"time"

	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lib/clock"
)

type StatsService struct {
	log       *slog.Logger
	statsRepo StatsProvider
	clock     clock.Clock
}

type StatsProvider interface {
	GetTeamStats(ctx context.Context, now time.Time) (*models.TeamStats, error)
}

func NewStatsService(
	log *slog.Logger,
	statsRepo StatsProvider,
	clk clock.Clock) *StatsService {
	if clk == nil {
		clk = clock.New()
	}
	return &StatsService{
		log:       log,
		statsRepo: statsRepo,
		clock:     clk,
	}
}

func (s *StatsService) GetTeamStats(ctx context.Context) (*models.TeamStats, error) {
	const op = "service.stats.GetTeamStats"

	log := s.log.With(slog.String("op", op))

	log.Info("getting team statistics")

	stats, err := s.statsRepo.GetTeamStats(ctx, s.clock.Now())
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to get team stats", err)
		return nil, err
	}

	log.Info("team statistics retrieved",
		slog.Int("total_teams", stats.TotalTeams),
		slog.Int("total_memberships", stats.TotalMemberships),
		slog.Int("full_teams", stats.FullTeams))

	return stats, nil
}
