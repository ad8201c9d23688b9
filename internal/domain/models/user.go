package models

import "time"

const (
	UserRoleDefault = 0
	UserRoleAdmin   = 1
)

type User struct {
	ID          int64     `db:"id" json:"id" yaml:"id"`
	Username    string    `db:"username" json:"username" yaml:"username"`
	UserAccount string    `db:"user_account" json:"user_account" yaml:"user_account"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url" yaml:"avatar_url"`
	Gender      int       `db:"gender" json:"gender" yaml:"gender"`
	Email       string    `db:"email" json:"-" yaml:"email"`
	Phone       string    `db:"phone" json:"-" yaml:"phone"`
	Role        int       `db:"user_role" json:"user_role" yaml:"user_role"`
	CreateTime  time.Time `db:"create_time" json:"create_time" yaml:"-"`
}

// UserProfile is the sanitized view of a user shown to other users.
type UserProfile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	UserAccount string `json:"user_account"`
	AvatarURL   string `json:"avatar_url"`
	Gender      int    `json:"gender"`
}

func (u *User) PublicProfile() *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		UserAccount: u.UserAccount,
		AvatarURL:   u.AvatarURL,
		Gender:      u.Gender,
	}
}

// CurrentUser is what a logged-in user sees about themselves.
type CurrentUser struct {
	UserProfile
	IsAdmin   bool `json:"is_admin"`
	TeamCount int  `json:"team_count"`
}
