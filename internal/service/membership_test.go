package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lock"
	"team-coordinator/internal/repo/memory"
)

func TestJoinTeam_Succeeds(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1)
	f.clock.Advance(time.Minute)

	require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2)))

	m, err := f.store.Memberships().Get(context.Background(), 2, id)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute), m.JoinTime)
	assert.Equal(t, 2, f.memberCount(t, id))
}

func TestJoinTeam_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) *models.TeamJoin
		actor int64
		want  error
		kind  error
	}{
		{
			name: "missing team",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				return &models.TeamJoin{TeamID: 42}
			},
			want: apperrors.ErrTeamNotFound, kind: apperrors.ErrNotFound,
		},
		{
			name: "private team",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				id := f.createTeam(t, 1, func(r *models.TeamCreate) { r.Status = int(models.TeamStatusPrivate) })
				return &models.TeamJoin{TeamID: id}
			},
			want: apperrors.ErrTeamPrivate, kind: apperrors.ErrAuthorization,
		},
		{
			name: "expired team",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				expire := base.Add(time.Hour)
				id := f.createTeam(t, 1, func(r *models.TeamCreate) { r.ExpireTime = &expire })
				f.clock.Advance(time.Hour)
				return &models.TeamJoin{TeamID: id}
			},
			want: apperrors.ErrTeamExpired, kind: apperrors.ErrConflict,
		},
		{
			name: "wrong password",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				id := f.createTeam(t, 1, func(r *models.TeamCreate) {
					r.Status = int(models.TeamStatusSecret)
					r.Password = "open sesame"
				})
				return &models.TeamJoin{TeamID: id, Password: "open  sesame"}
			},
			want: apperrors.ErrTeamWrongPassword, kind: apperrors.ErrAuthorization,
		},
		{
			name: "already joined",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				id := f.createTeam(t, 1)
				require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2)))
				return &models.TeamJoin{TeamID: id}
			},
			want: apperrors.ErrAlreadyJoined, kind: apperrors.ErrConflict,
		},
		{
			name: "leader joins own team",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				return &models.TeamJoin{TeamID: f.createTeam(t, 2)}
			},
			want: apperrors.ErrAlreadyJoined, kind: apperrors.ErrConflict,
		},
		{
			name: "team full",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				id := f.createTeam(t, 1, func(r *models.TeamCreate) { r.MaxNum = 2 })
				require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(3)))
				return &models.TeamJoin{TeamID: id}
			},
			want: apperrors.ErrTeamFull, kind: apperrors.ErrConflict,
		},
		{
			name: "user at membership cap",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				for leader := int64(3); leader <= 7; leader++ {
					id := f.createTeam(t, leader)
					require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2)))
				}
				return &models.TeamJoin{TeamID: f.createTeam(t, 1)}
			},
			want: apperrors.ErrMembershipLimit, kind: apperrors.ErrLimitExceeded,
		},
		{
			name: "bad id",
			setup: func(t *testing.T, f *fixture) *models.TeamJoin {
				return &models.TeamJoin{TeamID: -3}
			},
			want: apperrors.ErrTeamIDInvalid, kind: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := tt.setup(t, f)
			before := f.userCount(t, 2)

			err := f.svc.JoinTeam(context.Background(), req, f.user(2))
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, before, f.userCount(t, 2))
		})
	}
}

func TestJoinTeam_SecretWithExactPassword(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1, func(r *models.TeamCreate) {
		r.Status = int(models.TeamStatusSecret)
		r.Password = "open sesame"
	})

	require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id, Password: "open sesame"}, f.user(2)))
	assert.Equal(t, 2, f.memberCount(t, id))
}

func TestJoinTeam_NotLoggedIn(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1)

	err := f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotLoggedIn)

	err = f.svc.JoinTeam(context.Background(), nil, f.user(2))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestJoinTeam_TakesUserThenTeamLock(t *testing.T) {
	var guard *recordingGuard
	f := newFixture(t, withLocks(func(inner LockGuard) LockGuard {
		guard = &recordingGuard{inner: inner}
		return guard
	}))
	id := f.createTeam(t, 1)

	require.NoError(t, f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2)))

	require.Len(t, guard.calls, 2)
	assert.Equal(t, []string{lock.UserKey(2), lock.TeamKey(id)}, guard.calls[1])
}

func TestJoinTeam_LockFailureWritesNothing(t *testing.T) {
	var fail bool
	f := newFixture(t, withLocks(func(inner LockGuard) LockGuard {
		return lockSwitch{inner: inner, fail: &fail}
	}))
	id := f.createTeam(t, 1)
	fail = true

	err := f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2))
	require.ErrorIs(t, err, apperrors.ErrLockService)
	assert.Equal(t, 1, f.memberCount(t, id))
}

type lockSwitch struct {
	inner LockGuard
	fail  *bool
}

func (g lockSwitch) WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	if *g.fail {
		return apperrors.ErrLockUnavailable
	}
	return g.inner.WithLocks(ctx, names, fn)
}

func TestJoinTeam_ConcurrentJoinsNeverOverfill(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1, func(r *models.TeamCreate) { r.MaxNum = 4 })

	errs := runConcurrently(10, func(i int) error {
		return f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(int64(i+2)))
	})

	assert.Equal(t, 3, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrTeamFull)
		}
	}
	assert.Equal(t, 4, f.memberCount(t, id))
}

func TestJoinTeam_ConcurrentDuplicateJoinsInsertOnce(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1)

	errs := runConcurrently(6, func(int) error {
		return f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2))
	})

	assert.Equal(t, 1, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyJoined)
		}
	}
	assert.Equal(t, 2, f.memberCount(t, id))
}

func TestJoinTeam_ConcurrentJoinsRespectUserCap(t *testing.T) {
	f := newFixture(t)

	teamIDs := make([]int64, 0, 7)
	for leader := int64(2); leader <= 8; leader++ {
		teamIDs = append(teamIDs, f.createTeam(t, leader))
	}

	errs := runConcurrently(len(teamIDs), func(i int) error {
		return f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: teamIDs[i]}, f.user(1))
	})

	assert.Equal(t, models.MaxTeamsPerUser, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)
		}
	}
	assert.Equal(t, models.MaxTeamsPerUser, f.userCount(t, 1))
}

func TestJoinTeam_DissolvedWhileWaiting(t *testing.T) {
	f := newFixture(t)
	id := f.createTeam(t, 1)

	// Dissolve the team once the joiner has passed the pre-lock checks.
	f.svc.locks = beforeLocks{inner: f.svc.locks, hook: func() {
		f.svc.locks = f.svc.locks.(beforeLocks).inner
		require.NoError(t, f.svc.QuitTeam(context.Background(), &models.TeamQuit{TeamID: id}, f.user(1)))
	}}

	err := f.svc.JoinTeam(context.Background(), &models.TeamJoin{TeamID: id}, f.user(2))
	require.ErrorIs(t, err, apperrors.ErrTeamNotFound)
	assert.Zero(t, f.userCount(t, 2))
}

type beforeLocks struct {
	inner LockGuard
	hook  func()
}

func (g beforeLocks) WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	g.hook()
	return g.inner.WithLocks(ctx, names, fn)
}

func TestQuitTeam_MemberLeaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createTeam(t, 1)
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(2)))

	require.NoError(t, f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(2)))

	assert.Equal(t, 1, f.memberCount(t, id))
	assert.Equal(t, int64(1), f.team(t, id).UserID)
}

func TestQuitTeam_LastMemberDissolvesTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createTeam(t, 1)

	require.NoError(t, f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(1)))

	_, err := f.store.Teams().GetByID(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
	assert.Zero(t, f.userCount(t, 1))
}

func TestQuitTeam_LeaderHandsOverToSeniorMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createTeam(t, 1)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(5)))
	// Same join time as user 5 but inserted later.
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(3)))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(2)))

	require.NoError(t, f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(1)))
	assert.Equal(t, int64(5), f.team(t, id).UserID)
	assert.Equal(t, 3, f.memberCount(t, id))

	require.NoError(t, f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(5)))
	assert.Equal(t, int64(3), f.team(t, id).UserID)
	assert.Equal(t, 2, f.memberCount(t, id))
}

func TestQuitTeam_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createTeam(t, 1)

	err := f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(2))
	assert.ErrorIs(t, err, apperrors.ErrNotMember)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id + 1}, f.user(1))
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)

	err = f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotLoggedIn)

	err = f.svc.QuitTeam(ctx, &models.TeamQuit{}, f.user(1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, 1, f.memberCount(t, id))
}

func TestQuitTeam_RollsBackHandOverWhenDeleteFails(t *testing.T) {
	var members *flakyMembers
	f := newFixture(t, withMembers(func(m *memory.MembershipRepo) MembershipStore {
		members = &flakyMembers{MembershipRepo: m}
		return members
	}))
	ctx := context.Background()
	id := f.createTeam(t, 1)
	require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(2)))

	members.failDelete = true
	err := f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(1))
	require.ErrorIs(t, err, apperrors.ErrPersistence)

	assert.Equal(t, int64(1), f.team(t, id).UserID)
	assert.Equal(t, 2, f.memberCount(t, id))
}

func TestQuitTeam_NoSuccessorIsInternalError(t *testing.T) {
	var members *flakyMembers
	f := newFixture(t, withMembers(func(m *memory.MembershipRepo) MembershipStore {
		members = &flakyMembers{MembershipRepo: m}
		return members
	}))
	ctx := context.Background()
	id := f.createTeam(t, 1)

	// Count reports a second member that the listing does not return.
	f.svc.members = countLies{MembershipStore: members, count: 2}

	err := f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(1))
	require.ErrorIs(t, err, apperrors.ErrNoSuccessor)
	assert.ErrorIs(t, err, apperrors.ErrInternalInvariant)
	assert.Equal(t, 1, f.memberCount(t, id))
}

type countLies struct {
	MembershipStore
	count int
}

func (c countLies) CountByTeam(context.Context, int64) (int, error) {
	return c.count, nil
}

func TestQuitTeam_ConcurrentQuitsKeepLeaderAMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createTeam(t, 1, func(r *models.TeamCreate) { r.MaxNum = 6 })
	for u := int64(2); u <= 6; u++ {
		f.clock.Advance(time.Second)
		require.NoError(t, f.svc.JoinTeam(ctx, &models.TeamJoin{TeamID: id}, f.user(u)))
	}

	errs := runConcurrently(4, func(i int) error {
		return f.svc.QuitTeam(ctx, &models.TeamQuit{TeamID: id}, f.user(int64(i+1)))
	})
	assert.Equal(t, 4, countNil(errs))

	team := f.team(t, id)
	_, err := f.store.Memberships().Get(ctx, team.UserID, id)
	require.NoError(t, err, "leader must be a member")
	assert.Equal(t, int64(5), team.UserID)
	assert.Equal(t, 2, f.memberCount(t, id))
}
