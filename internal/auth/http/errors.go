package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// writeServiceError maps service sentinels onto API errors. Anything
// unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var apiErr *authsdk.APIError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		apiErr = authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrInvalidCode):
		apiErr = authsdk.ErrInvalidCode
	case errors.Is(err, service.ErrUserExists):
		apiErr = authsdk.ErrUserExists
	case errors.Is(err, service.ErrUserNotFound):
		apiErr = authsdk.ErrUserNotFound
	case errors.Is(err, service.ErrTOTPNotConfigured):
		apiErr = authsdk.ErrTOTPNotConfigured
	case errors.Is(err, service.ErrMFANotVerified):
		apiErr = authsdk.ErrMFARequired
	case errors.Is(err, service.ErrUnauthenticated):
		apiErr = authsdk.ErrUnauthorized
	default:
		slogx.FromContext(r.Context()).Error(op+" failed", "err", err)
		apiErr = authsdk.ErrServerError
	}
	apiErr.WriteError(w)
}

func writeValidation(w http.ResponseWriter, errs fieldErrors) {
	authsdk.ErrInvalidRequest.WithDetails(errs).WriteError(w)
}

func writeBadBody(w http.ResponseWriter, err error) {
	e := *authsdk.ErrInvalidRequest
	e.Description = err.Error()
	e.WriteError(w)
}
