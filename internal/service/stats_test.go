package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-coordinator/internal/domain/models"
)

func TestStatsService_GetTeamStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := base.Add(time.Minute)

	full := f.createTeam(t, 1, func(r *models.TeamCreate) { r.MaxNum = 2 })
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: full}, f.user(2)))
	f.createTeam(t, 3, func(r *models.TeamCreate) { r.Status = int(models.TeamStatusPrivate) })
	f.createTeam(t, 4, func(r *models.TeamCreate) { r.ExpireTime = &soon })

	svc := NewStatsService(discardLog, f.store.Stats(), f.clock)

	stats, err := svc.GetTeamStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTeams)
	assert.Equal(t, 2, stats.PublicTeams)
	assert.Equal(t, 1, stats.PrivateTeams)
	assert.Equal(t, 4, stats.TotalMemberships)
	assert.Equal(t, 1, stats.FullTeams)

	f.clock.Advance(time.Hour)
	stats, err = svc.GetTeamStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTeams)
	assert.InDelta(t, 1.5, stats.AvgMembersPerTeam, 0.001)
}
