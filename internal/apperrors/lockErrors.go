package apperrors

var (
	ErrLockTimeout     = New(ErrLockService, "could not acquire lock in time")
	ErrLockUnavailable = New(ErrLockService, "lock backend is unavailable")
	ErrLockLost        = New(ErrLockService, "lock expired before the operation finished")
)
