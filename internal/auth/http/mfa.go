package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/metricsx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// MFAHandler serves the login challenge and authenticator enrolment.
type MFAHandler struct {
	Auth    *service.AuthService
	MFA     *service.MFAService
	Metrics *metricsx.Metrics

	SecureCookies bool
}

// HandleVerify godoc
//
//	@Summary		Answer the login challenge
//	@Description	Checks an email code or an authenticator code and sets a verified session cookie.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFAVerifyRequest	true	"email, method (totp|email), code"
//	@Success		200		{object}	authsdk.SuccessResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed request or authenticator not set up"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid code"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user not found"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Router			/api/auth/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.MFAVerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if errs := validateMFAVerify(req.Email, req.Method, req.Code); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	challenge, err := domain.ParseMFAChallenge(req.Method, req.Code)
	if err != nil {
		writeValidation(w, fieldErrors{"method": "must be totp or email"})
		return
	}

	sess, err := h.Auth.CompleteMFA(ctx, req.Email, challenge)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			h.Metrics.ObserveMFA(challenge.Method(), false)
			log.Warn("mfa code rejected", slog.String("method", challenge.Method()))
		}
		writeServiceError(w, r, err, "mfa verify")
		return
	}

	h.Metrics.ObserveMFA(challenge.Method(), true)
	httpx.SetSessionCookie(w, sess.Token, sess.TTL, h.SecureCookies)
	log.Info("mfa verified", slog.String("user_id", sess.Payload.Subject), slog.String("method", challenge.Method()))
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleSetup godoc
//
//	@Summary		Start authenticator enrolment
//	@Description	Returns a new secret and otpauth URI. Nothing is stored until /api/auth/mfa/enable.
//	@Tags			MFA
//	@Security		SessionCookie
//	@Produce		json
//	@Success		200	{object}	authsdk.MFASetupResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"no verified session"
//	@Router			/api/auth/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	enrol, err := h.MFA.Setup(r.Context(), session)
	if err != nil {
		writeServiceError(w, r, err, "mfa setup")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFASetupResponse{
		Secret:  enrol.Secret,
		OTPAuth: enrol.OTPAuth,
	})
}

// HandleEnable godoc
//
//	@Summary		Finish authenticator enrolment
//	@Description	Verifies code against secret and only then stores the secret for the signed-in user.
//	@Tags			MFA
//	@Security		SessionCookie
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFAEnableRequest	true	"secret, code"
//	@Success		200		{object}	authsdk.SuccessResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"no verified session or invalid code"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user not found"
//	@Router			/api/auth/mfa/enable [post].
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	var req authsdk.MFAEnableRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if errs := validateMFAEnable(req.Secret, req.Code); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	if err := h.MFA.Enable(ctx, session, req.Secret, req.Code); err != nil {
		writeServiceError(w, r, err, "mfa enable")
		return
	}

	slogx.FromContext(ctx).Info("mfa enabled")
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}
