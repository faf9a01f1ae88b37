package chat

import "errors"

var (
	// ErrDecode marks an inbound frame that is not valid JSON, misses a required
	// field, or carries an mtype clients may not send.
	ErrDecode = errors.New("chat: malformed frame")

	// ErrNoSuchRecipient is returned when a direct delivery names an identity that is not registered.
	ErrNoSuchRecipient = errors.New("chat: no such recipient")

	// ErrDeliveryFailed wraps a send failure on a single recipient's connection.
	ErrDeliveryFailed = errors.New("chat: delivery failed")

	// ErrTransportClosed is returned by Send once the connection has terminated.
	ErrTransportClosed = errors.New("chat: transport closed")

	// ErrQueueFull is returned by Send when the connection's outbound queue is saturated.
	ErrQueueFull = errors.New("chat: send queue full")

	ErrNotInitialized     = errors.New("chat: connection has not sent INIT")
	ErrAlreadyInitialized = errors.New("chat: connection already initialized")
	ErrIdentityTaken      = errors.New("chat: identity already registered")
	ErrRateLimited        = errors.New("chat: frame rate limit exceeded")
	ErrTextTooLong        = errors.New("chat: text exceeds maximum length")
)
