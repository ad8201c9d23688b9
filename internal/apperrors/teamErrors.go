package apperrors

var (
	ErrTeamNotFound        = New(ErrNotFound, "team not found")
	ErrTeamNameInvalid     = New(ErrValidation, "team name must be non-blank and at most 20 characters")
	ErrTeamDescInvalid     = New(ErrValidation, "team description must be at most 512 characters")
	ErrTeamMaxNumInvalid   = New(ErrValidation, "team size must be between 1 and 20")
	ErrTeamStatusInvalid   = New(ErrValidation, "team status is unknown")
	ErrTeamPasswordInvalid = New(ErrValidation, "secret team requires a password of at most 32 characters")
	ErrTeamExpireInvalid   = New(ErrValidation, "team expire time must be in the future")
	ErrTeamIDInvalid       = New(ErrValidation, "team id is invalid")
	ErrTeamRequired        = New(ErrValidation, "team payload is required")
	ErrTeamLimitReached    = New(ErrLimitExceeded, "user already created the maximum number of teams")
	ErrTeamNotLeader       = New(ErrAuthorization, "only the team leader can do this")
	ErrTeamPrivate         = New(ErrAuthorization, "private teams cannot be joined")
	ErrTeamPrivateListing  = New(ErrAuthorization, "only admins can list private teams")
	ErrTeamExpired         = New(ErrConflict, "team has expired")
	ErrTeamFull            = New(ErrConflict, "team is full")
	ErrTeamShrinkBelowSize = New(ErrConflict, "team size cannot be lower than its member count")
	ErrTeamWrongPassword   = New(ErrAuthorization, "team password is wrong")
)
