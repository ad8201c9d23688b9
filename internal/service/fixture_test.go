package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lib/clock"
	"team-coordinator/internal/lock"
	"team-coordinator/internal/repo/memory"
)

var (
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
	base       = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	errDisk    = errors.New("disk on fire")
)

const adminID = 100

type fixture struct {
	store *memory.Store
	clock *clock.Manual
	svc   *TeamService
	users map[int64]*models.User
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	members MembershipStore
	teams   TeamStore
	locks   LockGuard
}

func withMembers(wrap func(*memory.MembershipRepo) MembershipStore) fixtureOption {
	return func(d *fixtureDeps) { d.members = wrap(d.members.(*memory.MembershipRepo)) }
}

func withTeams(wrap func(*memory.TeamRepo) TeamStore) fixtureOption {
	return func(d *fixtureDeps) { d.teams = wrap(d.teams.(*memory.TeamRepo)) }
}

func withLocks(wrap func(LockGuard) LockGuard) fixtureOption {
	return func(d *fixtureDeps) { d.locks = wrap(d.locks) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := memory.New()
	clk := clock.NewManual(base)

	users := make(map[int64]*models.User)
	for id := int64(1); id <= 12; id++ {
		u := models.User{ID: id, Username: "user", UserAccount: "user"}
		store.PutUser(u)
		users[id] = &u
	}
	admin := models.User{ID: adminID, Username: "admin", UserAccount: "admin", Role: models.UserRoleAdmin}
	store.PutUser(admin)
	users[adminID] = &admin

	deps := &fixtureDeps{
		members: store.Memberships(),
		teams:   store.Teams(),
		locks: lock.NewGuard(discardLog, lock.NewLocalLocker(), lock.Policy{
			Wait:     2 * time.Second,
			TTL:      10 * time.Second,
			Attempts: 5,
			Backoff:  5 * time.Millisecond,
		}, nil),
	}
	for _, opt := range opts {
		opt(deps)
	}

	return &fixture{
		store: store,
		clock: clk,
		svc:   NewTeamService(discardLog, deps.teams, deps.members, store.Users(), store, deps.locks, clk),
		users: users,
	}
}

func (f *fixture) user(id int64) *models.User {
	return f.users[id]
}

func (f *fixture) createTeam(t *testing.T, leader int64, mutate ...func(*models.TeamCreate)) int64 {
	t.Helper()

	req := &models.TeamCreate{Name: "team", Description: "desc", MaxNum: 5}
	for _, m := range mutate {
		m(req)
	}

	id, err := f.svc.CreateTeam(context.Background(), req, f.user(leader))
	require.NoError(t, err)
	return id
}

func (f *fixture) memberCount(t *testing.T, teamID int64) int {
	t.Helper()
	n, err := f.store.Memberships().CountByTeam(context.Background(), teamID)
	require.NoError(t, err)
	return n
}

func (f *fixture) userCount(t *testing.T, userID int64) int {
	t.Helper()
	n, err := f.store.Memberships().CountByUser(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func (f *fixture) team(t *testing.T, id int64) *models.Team {
	t.Helper()
	team, err := f.store.Teams().GetByID(context.Background(), id)
	require.NoError(t, err)
	return team
}

// recordingGuard remembers the lock names of every call.
type recordingGuard struct {
	inner LockGuard
	mu    sync.Mutex
	calls [][]string
}

func (g *recordingGuard) WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	g.calls = append(g.calls, append([]string(nil), names...))
	g.mu.Unlock()
	return g.inner.WithLocks(ctx, names, fn)
}

type failingGuard struct {
	err error
}

func (g failingGuard) WithLocks(context.Context, []string, func(ctx context.Context) error) error {
	return g.err
}

type flakyMembers struct {
	*memory.MembershipRepo
	failInsert bool
	failDelete bool
	failCount  bool
}

func (m *flakyMembers) Insert(ctx context.Context, ms *models.Membership) (int64, error) {
	if m.failInsert {
		return 0, errDisk
	}
	return m.MembershipRepo.Insert(ctx, ms)
}

func (m *flakyMembers) Delete(ctx context.Context, userID, teamID int64) error {
	if m.failDelete {
		return errDisk
	}
	return m.MembershipRepo.Delete(ctx, userID, teamID)
}

func (m *flakyMembers) CountByTeam(ctx context.Context, teamID int64) (int, error) {
	if m.failCount {
		return 0, errDisk
	}
	return m.MembershipRepo.CountByTeam(ctx, teamID)
}

type flakyTeams struct {
	*memory.TeamRepo
	failDelete bool
	failQuery  bool
}

func (r *flakyTeams) DeleteByID(ctx context.Context, id int64) error {
	if r.failDelete {
		return errDisk
	}
	return r.TeamRepo.DeleteByID(ctx, id)
}

func (r *flakyTeams) Query(ctx context.Context, filter models.TeamFilter) ([]models.Team, error) {
	if r.failQuery {
		return nil, errDisk
	}
	return r.TeamRepo.Query(ctx, filter)
}

func ptr[T any](v T) *T {
	return &v
}

// runConcurrently starts n calls of fn at once and returns their errors by index.
func runConcurrently(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func countNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}
