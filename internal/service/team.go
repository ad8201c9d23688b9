package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/domain/models"
	"team-coordinator/internal/lib/clock"
	"team-coordinator/internal/lock"
)

type TeamStore interface {
	Insert(ctx context.Context, team *models.Team) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	UpdateByID(ctx context.Context, team *models.Team) error
	DeleteByID(ctx context.Context, id int64) error
	Query(ctx context.Context, filter models.TeamFilter) ([]models.Team, error)
	Count(ctx context.Context, filter models.TeamFilter) (int, error)
}

// Transactor runs fn as one atomic unit of store writes.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockGuard runs fn while holding every named lock.
type LockGuard interface {
	WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error
}

// TeamService coordinates team lifecycle and membership. Every mutation
// runs under the relevant per-team and per-user locks and inside one
// transaction, so capacity, the per-user cap, membership uniqueness and
// leadership continuity hold under concurrent callers.
type TeamService struct {
	log      *slog.Logger
	teams    TeamStore
	members  MembershipStore
	users    UserDirectory
	tx       Transactor
	locks    LockGuard
	clock    clock.Clock
	validate *validator.Validate
}

func NewTeamService(
	log *slog.Logger,
	teams TeamStore,
	members MembershipStore,
	users UserDirectory,
	tx Transactor,
	locks LockGuard,
	clk clock.Clock,
) *TeamService {
	if clk == nil {
		clk = clock.New()
	}
	return &TeamService{
		log:      log,
		teams:    teams,
		members:  members,
		users:    users,
		tx:       tx,
		locks:    locks,
		clock:    clk,
		validate: newValidator(),
	}
}

func (s *TeamService) CreateTeam(ctx context.Context, req *models.TeamCreate, actor *models.User) (int64, error) {
	const op = "service.team.CreateTeam"

	log := s.log.With(slog.String("op", op))

	if req == nil {
		log.Warn("empty request")
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrTeamRequired)
	}
	if actor == nil {
		log.Warn("caller is not logged in")
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	log = log.With(slog.Int64("user_id", actor.ID), slog.String("team_name", req.Name))
	log.Info("attempting to create team")

	now := s.clock.Now()

	status, err := s.validateCreate(req, now)
	if err != nil {
		log.Warn("invalid team", slog.String("reason", err.Error()))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var teamID int64
	err = s.locks.WithLocks(ctx, []string{lock.UserKey(actor.ID)}, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			owned, err := s.teams.Count(ctx, models.TeamFilter{UserID: actor.ID})
			if err != nil {
				return storeErr(op, err)
			}
			if owned >= models.MaxTeamsPerUser {
				return fmt.Errorf("%s: %w", op, apperrors.ErrTeamLimitReached)
			}

			joined, err := s.members.CountByUser(ctx, actor.ID)
			if err != nil {
				return storeErr(op, err)
			}
			if joined >= models.MaxTeamsPerUser {
				return fmt.Errorf("%s: %w", op, apperrors.ErrMembershipLimit)
			}

			team := &models.Team{
				Name:        req.Name,
				Description: req.Description,
				MaxNum:      req.MaxNum,
				ExpireTime:  req.ExpireTime,
				UserID:      actor.ID,
				Status:      status,
				Password:    req.Password,
				CreateTime:  now,
				UpdateTime:  now,
			}

			teamID, err = s.teams.Insert(ctx, team)
			if err != nil {
				return storeErr(op, err)
			}

			_, err = s.members.Insert(ctx, &models.Membership{
				UserID:     actor.ID,
				TeamID:     teamID,
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
		logFailure(log, "failed to create team", err)
		return 0, err
	}

	log.Info("team created", slog.Int64("team_id", teamID))

	return teamID, nil
}

func (s *TeamService) validateCreate(req *models.TeamCreate, now time.Time) (models.TeamStatus, error) {
	if err := s.validate.Var(req.MaxNum, "min=1,max=20"); err != nil {
		return 0, apperrors.ErrTeamMaxNumInvalid
	}
	if err := s.validateName(req.Name); err != nil {
		return 0, err
	}
	if err := s.validateDescription(req.Description); err != nil {
		return 0, err
	}

	status, ok := models.ParseTeamStatus(req.Status)
	if !ok {
		return 0, apperrors.ErrTeamStatusInvalid
	}
	if status == models.TeamStatusSecret {
		if err := s.validatePassword(req.Password); err != nil {
			return 0, err
		}
	}

	if req.ExpireTime != nil && !req.ExpireTime.After(now) {
		return 0, apperrors.ErrTeamExpireInvalid
	}

	return status, nil
}

func (s *TeamService) validateName(name string) error {
	if err := s.validate.Var(name, "notblank,max=20"); err != nil {
		return apperrors.ErrTeamNameInvalid
	}
	return nil
}

func (s *TeamService) validateDescription(desc string) error {
	if err := s.validate.Var(desc, "max=512"); err != nil {
		return apperrors.ErrTeamDescInvalid
	}
	return nil
}

func (s *TeamService) validatePassword(password string) error {
	if err := s.validate.Var(password, "notblank,max=32"); err != nil {
		return apperrors.ErrTeamPasswordInvalid
	}
	return nil
}

// UpdateTeam applies the supplied fields of req. The leader or an admin may
// update a team. Ownership never changes here.
func (s *TeamService) UpdateTeam(ctx context.Context, req *models.TeamUpdate, actor *models.User) error {
	const op = "service.team.UpdateTeam"

	log := s.log.With(slog.String("op", op))

	if req == nil {
		log.Warn("empty request")
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamRequired)
	}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("invalid team id", slog.Int64("team_id", req.ID))
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamIDInvalid)
	}
	if actor == nil {
		log.Warn("caller is not logged in")
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	log = log.With(slog.Int64("user_id", actor.ID), slog.Int64("team_id", req.ID))
	log.Info("attempting to update team")

	now := s.clock.Now()

	if err := s.validateUpdateFields(req, now); err != nil {
		log.Warn("invalid update", slog.String("reason", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.loadManagedTeam(ctx, req.ID, actor, true); err != nil {
		logFailure(log, "update rejected", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.locks.WithLocks(ctx, []string{lock.TeamKey(req.ID)}, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			team, err := s.loadManagedTeam(ctx, req.ID, actor, true)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			if req.MaxNum != nil {
				count, err := s.members.CountByTeam(ctx, team.ID)
				if err != nil {
					return storeErr(op, err)
				}
				if *req.MaxNum < count {
					return fmt.Errorf("%s: %w", op, apperrors.ErrTeamShrinkBelowSize)
				}
			}

			if err := s.applyUpdate(team, req); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			team.UpdateTime = now

			if err := s.teams.UpdateByID(ctx, team); err != nil {
				return storeErr(op, err)
			}

			return nil
		})
	})
	if err != nil {
		logFailure(log, "failed to update team", err)
		return err
	}

	log.Info("team updated")

	return nil
}

func (s *TeamService) validateUpdateFields(req *models.TeamUpdate, now time.Time) error {
	if req.Name != nil {
		if err := s.validateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if err := s.validateDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.MaxNum != nil {
		if err := s.validate.Var(*req.MaxNum, "min=1,max=20"); err != nil {
			return apperrors.ErrTeamMaxNumInvalid
		}
	}
	if req.Status != nil {
		if _, ok := models.ParseTeamStatus(*req.Status); !ok {
			return apperrors.ErrTeamStatusInvalid
		}
	}
	if req.ExpireTime != nil && !req.ExpireTime.After(now) {
		return apperrors.ErrTeamExpireInvalid
	}
	return nil
}

// applyUpdate copies the supplied fields onto team and checks that the
// resulting status and password fit together.
func (s *TeamService) applyUpdate(team *models.Team, req *models.TeamUpdate) error {
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.MaxNum != nil {
		team.MaxNum = *req.MaxNum
	}
	if req.ExpireTime != nil {
		expire := *req.ExpireTime
		team.ExpireTime = &expire
	}
	if req.Status != nil {
		status, _ := models.ParseTeamStatus(*req.Status)
		team.Status = status
	}
	if req.Password != nil {
		team.Password = *req.Password
	}

	if team.Status == models.TeamStatusSecret {
		return s.validatePassword(team.Password)
	}
	return nil
}

// loadManagedTeam fetches the team and checks that actor leads it, or is an
// admin when allowAdmin is set.
func (s *TeamService) loadManagedTeam(ctx context.Context, teamID int64, actor *models.User, allowAdmin bool) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	if team.UserID != actor.ID && !(allowAdmin && s.users.IsAdmin(actor)) {
		return nil, apperrors.ErrTeamNotLeader
	}

	return team, nil
}

// DeleteTeam dissolves a team and all of its memberships. Only the current
// leader may do this.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID int64, actor *models.User) error {
	const op = "service.team.DeleteTeam"

	log := s.log.With(slog.String("op", op), slog.Int64("team_id", teamID))

	if teamID <= 0 {
		log.Warn("invalid team id")
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamIDInvalid)
	}
	if actor == nil {
		log.Warn("caller is not logged in")
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotLoggedIn)
	}

	log = log.With(slog.Int64("user_id", actor.ID))
	log.Info("attempting to delete team")

	if _, err := s.loadManagedTeam(ctx, teamID, actor, false); err != nil {
		logFailure(log, "delete rejected", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	var removed int64
	err := s.locks.WithLocks(ctx, []string{lock.TeamKey(teamID)}, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.loadManagedTeam(ctx, teamID, actor, false); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			var err error
			removed, err = s.members.DeleteByTeam(ctx, teamID)
			if err != nil {
				return storeErr(op, err)
			}

			if err := s.teams.DeleteByID(ctx, teamID); err != nil {
				return storeErr(op, err)
			}

			return nil
		})
	})
	if err != nil {
		logFailure(log, "failed to delete team", err)
		return err
	}

	log.Info("team deleted", slog.Int64("memberships_removed", removed))

	return nil
}

// GetTeam returns a single team with its leader's profile. A PRIVATE team is
// reported as not found unless actor is an admin or one of its members.
func (s *TeamService) GetTeam(ctx context.Context, teamID int64, actor *models.User) (*models.TeamUserView, error) {
	const op = "service.team.GetTeam"

	log := s.log.With(slog.String("op", op), slog.Int64("team_id", teamID))

	if teamID <= 0 {
		log.Warn("invalid team id")
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamIDInvalid)
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		err = storeErr(op, err)
		logFailure(log, "failed to get team", err)
		return nil, err
	}

	if team.Status == models.TeamStatusPrivate {
		visible, err := s.canSeePrivate(ctx, team, actor)
		if err != nil {
			err = storeErr(op, err)
			logFailure(log, "failed to check team visibility", err)
			return nil, err
		}
		if !visible {
			log.Warn("private team hidden from caller")
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
		}
	}

	view := models.TeamUserView{Team: *team}

	leader, err := s.users.GetByID(ctx, team.UserID)
	switch {
	case err == nil:
		view.CreateUser = leader.PublicProfile()
	case errors.Is(err, apperrors.ErrNotFound):
		log.Warn("team leader not found", slog.Int64("leader_id", team.UserID))
	default:
		err = storeErr(op, err)
		logFailure(log, "failed to resolve team leader", err)
		return nil, err
	}

	return &view, nil
}

func (s *TeamService) canSeePrivate(ctx context.Context, team *models.Team, actor *models.User) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if team.UserID == actor.ID || s.users.IsAdmin(actor) {
		return true, nil
	}

	_, err := s.members.Get(ctx, actor.ID, team.ID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
