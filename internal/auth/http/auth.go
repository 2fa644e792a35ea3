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

// AuthHandler serves signup, login, logout and session lookup.
type AuthHandler struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Metrics *metricsx.Metrics

	SecureCookies bool
	// ExposeOTPHint echoes the email code in the login response. Never set
	// in production.
	ExposeOTPHint bool
}

// HandleSignup godoc
//
//	@Summary		Create an account
//	@Description	Registers a user with MFA disabled. Does not sign in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SignupRequest	true	"email, name, password, role"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation failure or email already registered"
//	@Router			/api/auth/signup [post].
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	role, errs := validateSignup(req.Email, req.Name, req.Password, req.Role)
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	u, err := h.Users.Create(r.Context(), service.NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeServiceError(w, r, err, "signup")
		return
	}

	slogx.FromContext(r.Context()).Info("user signed up", slog.String("user_id", u.ID), slog.String("role", string(u.Role)))
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	})
}

// HandleLogin godoc
//
//	@Summary		Sign in with email and password
//	@Description	Without MFA the session cookie is set at once. With MFA an email code is sent and
//	@Description	needMfa is true; finish with /api/auth/mfa/verify.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if errs := validateLogin(req.Email, req.Password); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.Metrics.ObserveLogin(metricsx.LoginRejected)
			log.Warn("login rejected")
		}
		writeServiceError(w, r, err, "login")
		return
	}

	resp := authsdk.LoginResponse{
		Success: true,
		NeedMFA: res.NeedMFA,
		Methods: authsdk.MFAMethods{TOTP: res.Methods.TOTP, EmailOTP: res.Methods.EmailOTP},
		User: authsdk.UserResponse{
			Email: res.User.Email,
			Name:  res.User.Name,
			Role:  string(res.User.Role),
		},
	}

	if res.NeedMFA {
		h.Metrics.ObserveLogin(metricsx.LoginMFARequired)
		if h.ExposeOTPHint {
			resp.Hint = &authsdk.LoginHint{EmailOTP: res.EmailOTP}
		}
		log.Info("login needs mfa", slog.String("user_id", res.User.ID))
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}

	h.Metrics.ObserveLogin(metricsx.LoginSuccess)
	httpx.SetSessionCookie(w, res.Session.Token, res.Session.TTL, h.SecureCookies)
	log.Info("login succeeded", slog.String("user_id", res.User.ID))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout godoc
//
//	@Summary		Sign out
//	@Description	Clears the session cookie. Always succeeds.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.SuccessResponse
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	httpx.ClearSessionCookie(w, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleMe godoc
//
//	@Summary		Current session
//	@Description	Decodes the session cookie.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse	"authenticated: true"
//	@Failure		401	{object}	authsdk.MeResponse	"authenticated: false, user: null"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.MeResponse{})
		return
	}
	p, err := service.PayloadFromClaims(claims)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.MeResponse{})
		return
	}

	user := sessionUser(p)
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Unix()
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{Authenticated: true, User: &user})
}

func sessionUser(p domain.SessionPayload) authsdk.SessionUser {
	return authsdk.SessionUser{
		Subject:     p.Subject,
		Email:       p.Email,
		Name:        p.Name,
		Role:        string(p.Role),
		MFAVerified: p.MFAVerified,
	}
}
