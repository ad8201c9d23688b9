package models

type TeamStats struct {
	TotalTeams        int     `db:"total_teams" json:"total_teams"`
	PublicTeams       int     `db:"public_teams" json:"public_teams"`
	PrivateTeams      int     `db:"private_teams" json:"private_teams"`
	SecretTeams       int     `db:"secret_teams" json:"secret_teams"`
	TotalMemberships  int     `db:"total_memberships" json:"total_memberships"`
	AvgMembersPerTeam float64 `db:"avg_members_per_team" json:"avg_members_per_team"`
	FullTeams         int     `db:"full_teams" json:"full_teams"`
}
