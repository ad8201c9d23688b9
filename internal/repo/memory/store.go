// Package memory is an in-process storage driver for single-instance
// deployments and tests. It implements the same store contracts as the
// PostgreSQL repositories.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"team-coordinator/internal/domain/models"
)

type Store struct {
	// tx is held exclusively for the whole of a transaction; operations
	// outside a transaction share it, so they never see uncommitted writes.
	tx sync.RWMutex
	mu sync.Mutex

	teams       map[int64]models.Team
	memberships map[int64]models.Membership
	users       map[int64]models.User

	nextTeamID       int64
	nextMembershipID int64
	nextUserID       int64
}

func New() *Store {
	return &Store{
		teams:       make(map[int64]models.Team),
		memberships: make(map[int64]models.Membership),
		users:       make(map[int64]models.User),
	}
}

func (s *Store) Teams() *TeamRepo {
	return &TeamRepo{s: s}
}

func (s *Store) Memberships() *MembershipRepo {
	return &MembershipRepo{s: s}
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{s: s}
}

func (s *Store) Stats() *StatsRepo {
	return &StatsRepo{s: s}
}

type journalKey struct{}

// journal collects undo steps of the writes made inside one transaction.
type journal struct {
	store *Store
	undo  []func()
}

func (s *Store) journal(ctx context.Context) (*journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok || j.store != s {
		return nil, false
	}
	return j, true
}

// WithinTx runs fn as one atomic unit: if fn fails, or ctx is done by the
// time fn returns, every write it made through this store is undone.
// A nested call joins the outer unit.
// Transactions are serialized, and callers outside a transaction wait
// until it commits or rolls back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.journal(ctx); ok {
		return fn(ctx)
	}

	s.tx.Lock()
	defer s.tx.Unlock()

	j := &journal{store: s}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("repo.memory.WithinTx: commit: %w", context.Cause(ctx))
	}
	if err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}

	return nil
}

// lock guards one store operation. Inside a transaction the caller already
// owns s.tx, so only s.mu is taken.
func (s *Store) lock(ctx context.Context) func() {
	if _, ok := s.journal(ctx); ok {
		s.mu.Lock()
		return s.mu.Unlock
	}

	s.tx.RLock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.tx.RUnlock()
	}
}

// record registers an undo step. Must be called with s.mu held.
func (s *Store) record(ctx context.Context, undo func()) {
	if j, ok := s.journal(ctx); ok {
		j.undo = append(j.undo, undo)
	}
}

type seedFile struct {
	Users []models.User `yaml:"users"`
}

// LoadUsers reads a YAML file of the form
//
//	users:
//	  - id: 1
//	    username: alice
//	    user_account: alice
//	    user_role: 1
//
// into the user directory. Users without an id get the next free one.
func (s *Store) LoadUsers(path string) (int, error) {
	const op = "repo.memory.LoadUsers"

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for i := range seed.Users {
		s.PutUser(seed.Users[i])
	}

	return len(seed.Users), nil
}

// PutUser adds or replaces a user and returns its id.
func (s *Store) PutUser(user models.User) int64 {
	unlock := s.lock(context.Background())
	defer unlock()

	if user.ID <= 0 {
		user.ID = s.nextUserID + 1
	}
	if user.ID > s.nextUserID {
		s.nextUserID = user.ID
	}
	s.users[user.ID] = user

	return user.ID
}
