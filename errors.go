package authclient

import "errors"

var (
	// ErrMissingCredentials is returned when login is attempted without both email and password.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrMissingGoogleCredential is returned when the identity-provider credential is absent.
	ErrMissingGoogleCredential = errors.New("google credential is required")
	// ErrMissingRegistrationFields is returned when registration lacks email, password, or name.
	ErrMissingRegistrationFields = errors.New("email, password and name are required")
	// ErrMissingAdminCredentials is returned when admin login is attempted without both fields.
	ErrMissingAdminCredentials = errors.New("email and admin password are required")
	// ErrMalformedResponse is returned when a session-establishing call succeeds without a user record.
	ErrMalformedResponse = errors.New("malformed authentication response")
	// ErrOperationSuperseded is returned when a response arrives for a session generation that no longer exists.
	ErrOperationSuperseded = errors.New("operation superseded by logout or invalidation")
	// ErrManagerClosed is returned by operations invoked after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrSnapshotStoreRequired is returned by Build when no snapshot store was configured.
	ErrSnapshotStoreRequired = errors.New("snapshot store required")
)

// genericAuthFailure is the fixed fallback at the end of the error
// normalization chain: server message, server error field, transport error,
// then this.
const genericAuthFailure = "authentication request failed"

// msgSessionExpired surfaces an authoritative invalidation when the server
// supplied no structured message of its own.
const msgSessionExpired = "session expired"
