package apperrors

var (
	ErrMembershipNotFound = New(ErrNotFound, "membership not found")
	ErrAlreadyJoined      = New(ErrConflict, "user already joined this team")
	ErrNotMember          = New(ErrConflict, "user is not a member of this team")
	ErrMembershipLimit    = New(ErrLimitExceeded, "user can create and join at most 5 teams")
	ErrNoSuccessor        = New(ErrInternalInvariant, "leader quit but no successor membership was found")
)
