package models

import "time"

// Membership is the fact that a user belongs to a team. ID grows with insertion
// order and breaks ties between equal join times.
type Membership struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	TeamID     int64     `db:"team_id" json:"team_id"`
	JoinTime   time.Time `db:"join_time" json:"join_time"`
	CreateTime time.Time `db:"create_time" json:"create_time"`
}
