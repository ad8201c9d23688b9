package models

import "time"

const (
	MaxTeamSize           = 20
	MaxTeamNameLen        = 20
	MaxTeamDescriptionLen = 512
	MaxTeamPasswordLen    = 32
	// MaxTeamsPerUser caps both the teams a user leads and the teams a user belongs to.
	MaxTeamsPerUser = 5
)

type TeamStatus int

const (
	TeamStatusPublic TeamStatus = iota
	TeamStatusPrivate
	TeamStatusSecret
)

// ParseTeamStatus maps a raw status value to a known TeamStatus.
func ParseTeamStatus(v int) (TeamStatus, bool) {
	switch s := TeamStatus(v); s {
	case TeamStatusPublic, TeamStatusPrivate, TeamStatusSecret:
		return s, true
	}
	return 0, false
}

func (s TeamStatus) String() string {
	switch s {
	case TeamStatusPublic:
		return "PUBLIC"
	case TeamStatusPrivate:
		return "PRIVATE"
	case TeamStatusSecret:
		return "SECRET"
	}
	return "UNKNOWN"
}

type Team struct {
	ID          int64      `db:"id" json:"id" yaml:"id"`
	Name        string     `db:"name" json:"name" yaml:"name"`
	Description string     `db:"description" json:"description" yaml:"description"`
	MaxNum      int        `db:"max_num" json:"max_num" yaml:"max_num"`
	ExpireTime  *time.Time `db:"expire_time" json:"expire_time,omitempty" yaml:"expire_time"`
	UserID      int64      `db:"user_id" json:"user_id" yaml:"user_id"`
	Status      TeamStatus `db:"status" json:"status" yaml:"status"`
	Password    string     `db:"password" json:"-" yaml:"password"`
	CreateTime  time.Time  `db:"create_time" json:"create_time" yaml:"-"`
	UpdateTime  time.Time  `db:"update_time" json:"update_time" yaml:"-"`
}

// ExpiredAt reports whether the team is expired at the given instant.
// A team without an expire time never expires.
func (t *Team) ExpiredAt(now time.Time) bool {
	return t.ExpireTime != nil && !t.ExpireTime.After(now)
}

type TeamCreate struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	MaxNum      int        `json:"max_num"`
	ExpireTime  *time.Time `json:"expire_time"`
	Status      int        `json:"status"`
	Password    string     `json:"password"`
}

// TeamUpdate carries only the fields the caller wants to change; nil means unchanged.
type TeamUpdate struct {
	ID          int64      `json:"id" validate:"required,gt=0"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	MaxNum      *int       `json:"max_num"`
	ExpireTime  *time.Time `json:"expire_time"`
	Status      *int       `json:"status"`
	Password    *string    `json:"password"`
}

type TeamJoin struct {
	TeamID   int64  `json:"team_id" validate:"required,gt=0"`
	Password string `json:"password"`
}

type TeamQuit struct {
	TeamID int64 `json:"team_id" validate:"required,gt=0"`
}

// TeamQuery is the caller-facing search object. Zero values mean "not filtered",
// except Status which defaults to PUBLIC.
type TeamQuery struct {
	ID          int64   `json:"id"`
	IDs         []int64 `json:"ids"`
	MaxNum      int     `json:"max_num"`
	SearchText  string  `json:"search_text"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UserID      int64   `json:"user_id"`
	Status      *int    `json:"status"`
}

// TeamFilter is what the team store understands.
type TeamFilter struct {
	ID          int64
	IDs         []int64
	MaxNum      int
	SearchText  string
	Name        string
	Description string
	UserID      int64
	Status      *TeamStatus
	// AliveAt drops teams whose expire time is set and not after this instant.
	AliveAt *time.Time
}

// TeamUserView is a team together with its leader's public profile.
type TeamUserView struct {
	Team
	CreateUser *UserProfile `json:"create_user,omitempty"`
}
