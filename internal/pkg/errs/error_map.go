/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and the ERROR notices sent over the relay protocol.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrOriginNotAllowed:  {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden},

	// 2xxx: Relay Protocol Errors
	ErrMessageMalformed:      {Code: ErrMessageMalformed, Message: "Message is malformed."},
	ErrNotInitialized:        {Code: ErrNotInitialized, Message: "Send INIT before chatting."},
	ErrAlreadyInitialized:    {Code: ErrAlreadyInitialized, Message: "This connection has already joined."},
	ErrRecipientNotFound:     {Code: ErrRecipientNotFound, Message: "User %s is not online."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx: Identity and Session Errors
	ErrIdentityTaken: {Code: ErrIdentityTaken, Message: "Name %s is already in use."},
	ErrSessionKicked: {Code: ErrSessionKicked, Message: "You were signed in from another connection."},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrServiceUnavailable: {Code: ErrServiceUnavailable, Message: "Server is shutting down.", Status: http.StatusServiceUnavailable},
}
