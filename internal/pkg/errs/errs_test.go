package errs

import (
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"wschat/internal/pkg/logx"
)

func TestNewError(t *testing.T) {
	logx.SetOutput(io.Discard, zerolog.Disabled)

	tests := []struct {
		name       string
		code       int
		details    []any
		wantCode   int
		wantStatus int
		wantMsg    string
	}{
		{"http error", ErrRateLimitExceeded, nil, ErrRateLimitExceeded, http.StatusTooManyRequests, "Too many requests. Please try again later."},
		{"protocol error defaults to 200", ErrMessageMalformed, nil, ErrMessageMalformed, http.StatusOK, "Message is malformed."},
		{"template", ErrRecipientNotFound, []any{"bob"}, ErrRecipientNotFound, http.StatusOK, "User bob is not online."},
		{"details without template", ErrOriginNotAllowed, []any{"x"}, ErrOriginNotAllowed, http.StatusForbidden, "Origin not allowed."},
		{"unknown code", 9999, nil, ErrUnknown, http.StatusInternalServerError, "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewError(tt.code, tt.details...)
			if got.Code != tt.wantCode || got.Status != tt.wantStatus || got.Message != tt.wantMsg {
				t.Errorf("NewError(%d) = %+v, want code %d status %d message %q",
					tt.code, got, tt.wantCode, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestNewError_DoesNotMutateTemplate(t *testing.T) {
	_ = NewError(ErrIdentityTaken, "alice")

	if got := NewError(ErrIdentityTaken, "bob").Message; got != "Name bob is already in use." {
		t.Errorf("second message = %q", got)
	}
}
