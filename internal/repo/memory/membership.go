package memory

import (
	"context"
	"fmt"
	"sort"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
)

type MembershipRepo struct {
	s *Store
}

func (r *MembershipRepo) Insert(ctx context.Context, m *models.Membership) (int64, error) {
	const op = "repo.memory.membership.Insert"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	if _, ok := r.s.findMembership(m.UserID, m.TeamID); ok {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrAlreadyJoined)
	}

	r.s.nextMembershipID++
	stored := *m
	stored.ID = r.s.nextMembershipID
	r.s.memberships[stored.ID] = stored

	r.s.record(ctx, func() { delete(r.s.memberships, stored.ID) })

	return stored.ID, nil
}

func (r *MembershipRepo) Get(ctx context.Context, userID, teamID int64) (*models.Membership, error) {
	const op = "repo.memory.membership.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	m, ok := r.s.findMembership(userID, teamID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
	}

	return &m, nil
}

func (r *MembershipRepo) Delete(ctx context.Context, userID, teamID int64) error {
	const op = "repo.memory.membership.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	m, ok := r.s.findMembership(userID, teamID)
	if !ok {
		return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipNotFound)
	}
	delete(r.s.memberships, m.ID)

	r.s.record(ctx, func() { r.s.memberships[m.ID] = m })

	return nil
}

func (r *MembershipRepo) DeleteByTeam(ctx context.Context, teamID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("repo.memory.membership.DeleteByTeam: %w", err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	var removed []models.Membership
	for id, m := range r.s.memberships {
		if m.TeamID == teamID {
			removed = append(removed, m)
			delete(r.s.memberships, id)
		}
	}

	r.s.record(ctx, func() {
		for _, m := range removed {
			r.s.memberships[m.ID] = m
		}
	})

	return int64(len(removed)), nil
}

func (r *MembershipRepo) CountByTeam(ctx context.Context, teamID int64) (int, error) {
	members, err := r.ListByTeam(ctx, teamID, 0)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (r *MembershipRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	ids, err := r.ListTeamIDsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListByTeam returns the team's memberships ordered by join time, then by
// insertion order. A non-positive limit returns all of them.
func (r *MembershipRepo) ListByTeam(ctx context.Context, teamID int64, limit int) ([]models.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.memory.membership.ListByTeam: %w", err)
	}

	unlock := r.s.lock(ctx)
	members := r.s.filterMemberships(func(m *models.Membership) bool { return m.TeamID == teamID })
	unlock()

	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}

	return members, nil
}

func (r *MembershipRepo) ListTeamIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.memory.membership.ListTeamIDsByUser: %w", err)
	}

	unlock := r.s.lock(ctx)
	members := r.s.filterMemberships(func(m *models.Membership) bool { return m.UserID == userID })
	unlock()

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.TeamID)
	}

	return ids, nil
}

func (s *Store) findMembership(userID, teamID int64) (models.Membership, bool) {
	for _, m := range s.memberships {
		if m.UserID == userID && m.TeamID == teamID {
			return m, true
		}
	}
	return models.Membership{}, false
}

func (s *Store) filterMemberships(keep func(m *models.Membership) bool) []models.Membership {
	out := make([]models.Membership, 0)
	for _, m := range s.memberships {
		if keep(&m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinTime.Equal(out[j].JoinTime) {
			return out[i].JoinTime.Before(out[j].JoinTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
