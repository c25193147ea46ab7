package registry

import "errors"

// Registration and persistence failures are distinguished as sentinel
// errors so the UI layer can present a specific message for each.
var (
	// ErrEmptyUsername rejects a registration with no username.
	ErrEmptyUsername = errors.New("username cannot be empty")
	// ErrNoAuthMethod rejects a registration that supplies neither a
	// password nor a face encoding.
	ErrNoAuthMethod = errors.New("at least one authentication method is required")
	// ErrInvalidEmbedding rejects a face encoding that is not exactly
	// 128 numbers long.
	ErrInvalidEmbedding = errors.New("face encoding has invalid length")
	// ErrDuplicateUsername rejects a registration for an existing account.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateFace rejects enrollment of a face too similar to one
	// already registered.
	ErrDuplicateFace = errors.New("face already registered")
	// ErrUnknownUser is returned by mutations on a nonexistent account.
	ErrUnknownUser = errors.New("user does not exist")
	// ErrPersistence reports a failed save. Any partially committed state
	// has already been rolled back when this is returned.
	ErrPersistence = errors.New("failed to persist account data")
)
