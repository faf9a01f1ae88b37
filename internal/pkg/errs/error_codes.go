/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific protocol or system errors both internally within
the server and in communication with clients (HTTP responses and ERROR notices).
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrOriginNotAllowed indicates that the WebSocket Origin header is not in the allow list.
	ErrOriginNotAllowed = 1008
)

// 2xxx: Relay Protocol Errors
const (
	// ErrMessageMalformed indicates that a frame is missing a required field or carries an unsupported mtype.
	ErrMessageMalformed = 2001

	// ErrNotInitialized indicates that a TEXT frame arrived before the connection sent INIT.
	ErrNotInitialized = 2002

	// ErrAlreadyInitialized indicates that an INIT frame arrived on a connection that already joined.
	ErrAlreadyInitialized = 2003

	// ErrRecipientNotFound indicates that a direct message names an identity that is not connected.
	ErrRecipientNotFound = 2101

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: Identity and Session Errors
const (
	// ErrIdentityTaken indicates that the requested identity is held by another live connection.
	ErrIdentityTaken = 3001

	// ErrSessionKicked indicates that the current client connection has been replaced by a newer one.
	ErrSessionKicked = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrServiceUnavailable indicates that the hub is shutting down and refuses new connections.
	ErrServiceUnavailable = 5003
)
