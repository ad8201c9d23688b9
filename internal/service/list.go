package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lib/logger/sl"
)

const leaderLookupLimit = 8

// ListTeams searches live teams. Status defaults to PUBLIC; listing
// PRIVATE teams requires an admin. actor may be nil.
func (s *TeamService) ListTeams(ctx context.Context, query *models.TeamQuery, actor *models.User) ([]models.TeamUserView, error) {
	const op = "service.team.ListTeams"

	log := s.log.With(slog.String("op", op))

	if query == nil {
		query = &models.TeamQuery{}
	}

	status := models.TeamStatusPublic
	if query.Status != nil {
		if parsed, ok := models.ParseTeamStatus(*query.Status); ok {
			status = parsed
		}
	}

	if status == models.TeamStatusPrivate && !s.users.IsAdmin(actor) {
		log.Warn("private listing denied")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamPrivateListing)
	}

	now := s.clock.Now()
	filter := models.TeamFilter{
		ID:          query.ID,
		IDs:         query.IDs,
		MaxNum:      query.MaxNum,
		SearchText:  query.SearchText,
		Name:        query.Name,
		Description: query.Description,
		UserID:      query.UserID,
		Status:      &status,
		AliveAt:     &now,
	}

	views, err := s.queryViews(ctx, filter)
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to list teams", err)
		return nil, err
	}

	log.Debug("teams listed", slog.String("status", status.String()), slog.Int("count", len(views)))

	return views, nil
}

// ListOwnedTeams returns the live teams the caller leads, of any status.
func (s *TeamService) ListOwnedTeams(ctx context.Context, actor *models.User) ([]models.TeamUserView, error) {
	const op = "service.team.ListOwnedTeams"

	log := s.log.With(slog.String("op", op))

	if actor == nil {
		log.Warn("caller is not logged in")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	now := s.clock.Now()
	views, err := s.queryViews(ctx, models.TeamFilter{UserID: actor.ID, AliveAt: &now})
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to list owned teams", err)
		return nil, err
	}

	return views, nil
}

// ListJoinedTeams returns the live teams the caller is a member of, of any status.
func (s *TeamService) ListJoinedTeams(ctx context.Context, actor *models.User) ([]models.TeamUserView, error) {
	const op = "service.team.ListJoinedTeams"

	log := s.log.With(slog.String("op", op))

	if actor == nil {
		log.Warn("caller is not logged in")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	ids, err := s.members.ListTeamIDsByUser(ctx, actor.ID)
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to list memberships", err)
		return nil, err
	}
	if len(ids) == 0 {
		return []models.TeamUserView{}, nil
	}

	now := s.clock.Now()
	views, err := s.queryViews(ctx, models.TeamFilter{IDs: ids, AliveAt: &now})
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to list joined teams", err)
		return nil, err
	}

	return views, nil
}

func (s *TeamService) queryViews(ctx context.Context, filter models.TeamFilter) ([]models.TeamUserView, error) {
	teams, err := s.teams.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	leaders, err := s.resolveLeaders(ctx, teams)
	if err != nil {
		return nil, err
	}

	views := make([]models.TeamUserView, 0, len(teams))
	for _, team := range teams {
		views = append(views, models.TeamUserView{
			Team:       team,
			CreateUser: leaders[team.UserID],
		})
	}

	return views, nil
}

// resolveLeaders looks up each distinct leader concurrently. Leaders that
// cannot be resolved are left out of the result.
func (s *TeamService) resolveLeaders(ctx context.Context, teams []models.Team) (map[int64]*models.UserProfile, error) {
	var (
		mu       sync.Mutex
		profiles = make(map[int64]*models.UserProfile, len(teams))
		seen     = make(map[int64]struct{}, len(teams))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(leaderLookupLimit)

	for _, team := range teams {
		id := team.UserID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			user, err := s.users.GetByID(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !errors.Is(err, apperrors.ErrNotFound) {
					s.log.Warn("failed to resolve team leader", slog.Int64("leader_id", id), sl.Err(err))
				}
				return nil
			}

			mu.Lock()
			profiles[id] = user.PublicProfile()
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return profiles, nil
}
