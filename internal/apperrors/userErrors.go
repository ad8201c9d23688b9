package apperrors

var (
	ErrUserNotFound = New(ErrNotFound, "user not found")
	ErrNotLoggedIn  = New(ErrAuthorization, "user is not logged in")
	ErrInvalidToken = New(ErrAuthorization, "auth token is invalid")
)
