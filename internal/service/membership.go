package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lock"
)

type MembershipStore interface {
	// Insert fails with apperrors.ErrAlreadyJoined on a duplicate pair.
	Insert(ctx context.Context, m *models.Membership) (int64, error)
	Get(ctx context.Context, userID, teamID int64) (*models.Membership, error)
	Delete(ctx context.Context, userID, teamID int64) error
	DeleteByTeam(ctx context.Context, teamID int64) (int64, error)
	CountByTeam(ctx context.Context, teamID int64) (int, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	// ListByTeam orders by join time, then membership id.
	ListByTeam(ctx context.Context, teamID int64, limit int) ([]models.Membership, error)
	ListTeamIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

func (s *TeamService) JoinTeam(ctx context.Context, req *models.TeamJoin, actor *models.User) error {
	const op = "service.team.JoinTeam"

	log := s.log.With(slog.String("op", op))

	if req == nil {
		log.Warn("empty request")
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamRequired)
	}
	if actor == nil {
		log.Warn("caller is not logged in")
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("invalid team id", slog.Int64("team_id", req.TeamID))
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamIDInvalid)
	}

	log = log.With(slog.Int64("user_id", actor.ID), slog.Int64("team_id", req.TeamID))
	log.Info("attempting to join team")

	if _, err := s.loadJoinableTeam(ctx, req, s.clock.Now()); err != nil {
		logFailure(log, "join rejected", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	names := []string{lock.UserKey(actor.ID), lock.TeamKey(req.TeamID)}
	err := s.locks.WithLocks(ctx, names, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			now := s.clock.Now()

			// The team may have been dissolved or changed while we waited.
			team, err := s.loadJoinableTeam(ctx, req, now)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			joined, err := s.members.CountByUser(ctx, actor.ID)
			if err != nil {
				return storeErr(op, err)
			}
			if joined >= models.MaxTeamsPerUser {
				return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipLimit)
			}

			_, err = s.members.Get(ctx, actor.ID, team.ID)
			switch {
			case err == nil:
				return fmt.Errorf("%s: %w", op, apperrors.ErrAlreadyJoined)
			case !errors.Is(err, apperrors.ErrNotFound):
				return storeErr(op, err)
			}

			count, err := s.members.CountByTeam(ctx, team.ID)
			if err != nil {
				return storeErr(op, err)
			}
			if count >= team.MaxNum {
				return fmt.Errorf("%s: %w", op, apperrors.ErrTeamFull)
			}

			_, err = s.members.Insert(ctx, &models.Membership{
				UserID:     actor.ID,
				TeamID:     team.ID,
				JoinTime:   now,
				CreateTime: now,
			})
			if err != nil {
				return storeErr(op, err)
			}

			return nil
		})
	})
	if err != nil {
		logFailure(log, "failed to join team", err)
		return err
	}

	log.Info("joined team")

	return nil
}

// loadJoinableTeam fetches the team and checks the rules that do not
// depend on membership state.
func (s *TeamService) loadJoinableTeam(ctx context.Context, req *models.TeamJoin, now time.Time) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, req.TeamID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	switch {
	case team.Status == models.TeamStatusPrivate:
		return nil, apperrors.ErrTeamPrivate
	case team.ExpiredAt(now):
		return nil, apperrors.ErrTeamExpired
	case team.Status == models.TeamStatusSecret && req.Password != team.Password:
		return nil, apperrors.ErrTeamWrongPassword
	}

	return team, nil
}

// QuitTeam removes the caller from a team. The last member leaving
// dissolves the team; a leader leaving hands leadership to the most senior
// remaining member.
func (s *TeamService) QuitTeam(ctx context.Context, req *models.TeamQuit, actor *models.User) error {
	const op = "service.team.QuitTeam"

	log := s.log.With(slog.String("op", op))

	if req == nil {
		log.Warn("empty request")
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamRequired)
	}
	if actor == nil {
		log.Warn("caller is not logged in")
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("invalid team id", slog.Int64("team_id", req.TeamID))
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamIDInvalid)
	}

	log = log.With(slog.Int64("user_id", actor.ID), slog.Int64("team_id", req.TeamID))
	log.Info("attempting to quit team")

	var outcome string
	err := s.locks.WithLocks(ctx, []string{lock.TeamKey(req.TeamID)}, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			team, err := s.teams.GetByID(ctx, req.TeamID)
			if err != nil {
				return storeErr(op, err)
			}

			_, err = s.members.Get(ctx, actor.ID, team.ID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return fmt.Errorf("%s: %w", op, apperrors.ErrNotMember)
				}
				return storeErr(op, err)
			}

			count, err := s.members.CountByTeam(ctx, team.ID)
			if err != nil {
				return storeErr(op, err)
			}

			if count == 1 {
				if err := s.members.Delete(ctx, actor.ID, team.ID); err != nil {
					return storeErr(op, err)
				}
				if err := s.teams.DeleteByID(ctx, team.ID); err != nil {
					return storeErr(op, err)
				}
				outcome = "dissolved"
				return nil
			}

			if team.UserID == actor.ID {
				successor, err := s.nextLeader(ctx, team.ID, actor.ID)
				if err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}

				team.UserID = successor
				team.UpdateTime = s.clock.Now()
				if err := s.teams.UpdateByID(ctx, team); err != nil {
					return storeErr(op, err)
				}
				outcome = fmt.Sprintf("leadership passed to user %d", successor)
			} else {
				outcome = "left"
			}

			if err := s.members.Delete(ctx, actor.ID, team.ID); err != nil {
				return storeErr(op, err)
			}

			return nil
		})
	})
	if err != nil {
		logFailure(log, "failed to quit team", err)
		return err
	}

	log.Info("quit team", slog.String("outcome", outcome))

	return nil
}

// nextLeader picks the earliest-joined member other than the leaving one.
// While the leader is the most senior member that is the second row.
func (s *TeamService) nextLeader(ctx context.Context, teamID, leavingID int64) (int64, error) {
	members, err := s.members.ListByTeam(ctx, teamID, 2)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	if len(members) < 2 {
		return 0, apperrors.ErrNoSuccessor
	}

	for _, m := range members {
		if m.UserID != leavingID {
			return m.UserID, nil
		}
	}

	return 0, apperrors.ErrNoSuccessor
}
