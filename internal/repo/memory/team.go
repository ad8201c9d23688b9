package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
)

type TeamRepo struct {
	s *Store
}

func (r *TeamRepo) Insert(ctx context.Context, team *models.Team) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("repo.memory.team.Insert: %w", err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	r.s.nextTeamID++
	stored := *team
	stored.ID = r.s.nextTeamID
	r.s.teams[stored.ID] = stored

	r.s.record(ctx, func() { delete(r.s.teams, stored.ID) })

	return stored.ID, nil
}

func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	const op = "repo.memory.team.GetByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	team, ok := r.s.teams[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}

	return &team, nil
}

func (r *TeamRepo) UpdateByID(ctx context.Context, team *models.Team) error {
	const op = "repo.memory.team.UpdateByID"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	prev, ok := r.s.teams[team.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}

	updated := *team
	updated.CreateTime = prev.CreateTime
	r.s.teams[team.ID] = updated

	r.s.record(ctx, func() { r.s.teams[prev.ID] = prev })

	return nil
}

func (r *TeamRepo) DeleteByID(ctx context.Context, id int64) error {
	const op = "repo.memory.team.DeleteByID"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	prev, ok := r.s.teams[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}
	delete(r.s.teams, id)

	r.s.record(ctx, func() { r.s.teams[prev.ID] = prev })

	return nil
}

func (r *TeamRepo) Query(ctx context.Context, filter models.TeamFilter) ([]models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.memory.team.Query: %w", err)
	}

	unlock := r.s.lock(ctx)
	defer unlock()

	teams := make([]models.Team, 0)
	for _, team := range r.s.teams {
		if matchTeam(&team, filter) {
			teams = append(teams, team)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	return teams, nil
}

func (r *TeamRepo) Count(ctx context.Context, filter models.TeamFilter) (int, error) {
	teams, err := r.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(teams), nil
}

func matchTeam(t *models.Team, f models.TeamFilter) bool {
	if f.ID > 0 && t.ID != f.ID {
		return false
	}
	if len(f.IDs) > 0 && !containsID(f.IDs, t.ID) {
		return false
	}
	if f.MaxNum > 0 && t.MaxNum != f.MaxNum {
		return false
	}
	if text := strings.TrimSpace(f.SearchText); text != "" &&
		!strings.Contains(t.Name, text) && !strings.Contains(t.Description, text) {
		return false
	}
	if name := strings.TrimSpace(f.Name); name != "" && !strings.Contains(t.Name, name) {
		return false
	}
	if desc := strings.TrimSpace(f.Description); desc != "" && !strings.Contains(t.Description, desc) {
		return false
	}
	if f.UserID > 0 && t.UserID != f.UserID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AliveAt != nil && t.ExpiredAt(*f.AliveAt) {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
