/*
Package resp writes the relay's HTTP JSON bodies.

Every body is an Envelope: a business code (0 on success, see errs otherwise), a
message, and for the health endpoint a data payload.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"wschat/internal/pkg/errs"
	"wschat/internal/pkg/logx"
)

// Envelope is the body of every HTTP response the relay writes.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondSuccess writes data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

// RespondError writes customErr with its HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	write(w, r, customErr.Status, Envelope{Code: customErr.Code, Message: customErr.Message})
}

func write(w http.ResponseWriter, r *http.Request, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.Warn("Failed to write JSON response", "status", status, "uri", r.RequestURI, "error", err.Error())
	}
}
