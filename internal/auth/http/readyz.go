package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the user store and the email code store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"a store is unreachable"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, users, otpCodes Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := &authsdk.HealthChecks{Users: "ok", OTPCodes: "ok"}
		status, code := "ok", http.StatusOK

		if err := users.Ping(ctx); err != nil {
			checks.Users = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if otpCodes != nil {
			if err := otpCodes.Ping(ctx); err != nil {
				checks.OTPCodes = "error: " + err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
