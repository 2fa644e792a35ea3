package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/metricsx"
	"github.com/aussiebroadwan/portal/pkg/otpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	codec *jwtx.HS256Codec
	users *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memory.NewStore()
	codec, err := jwtx.NewHS256Codec([]byte("router-test-secret"), "portal-auth")
	require.NoError(t, err)

	users := &service.UserService{Store: st}
	sessions := &service.SessionService{Codec: codec, TTL: jwtx.DefaultSessionTTL}
	auth := &service.AuthService{
		Users:    users,
		EmailOTP: service.NewEmailOTPService(st.OTPCodes()),
		Sessions: sessions,
		Mailer:   service.LogMailer{},
	}

	r := NewRouter(codec, "test", slogx.Discard())
	r.UserService = users
	r.AuthService = auth
	r.MFAService = &service.MFAService{Users: users, Issuer: "UI-RND"}
	r.Metrics = metricsx.New("portal")
	r.UserStore = st
	r.ExposeOTPHint = true
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	require.NoError(t, users.SeedUsers(context.Background(), slogx.Discard(), service.DemoUsers))

	return &testServer{Server: srv, codec: codec, users: users}
}

func requireAPIError(t *testing.T, err error, status int, code string) *authsdk.APIError {
	t.Helper()
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected *authsdk.APIError, got %v", err)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

// plantSession puts a hand-made session token into the client's jar.
func (s *testServer) plantSession(t *testing.T, c *authsdk.Client, u domain.User, verified bool) {
	t.Helper()
	tok, _, err := s.codec.Issue(u.ID, u.Email, u.Name, string(u.Role), verified, time.Hour)
	require.NoError(t, err)
	base, err := url.Parse(s.URL)
	require.NoError(t, err)
	c.HTTPClient.Jar.SetCookies(base, []*http.Cookie{{Name: httpx.SessionCookieName, Value: tok, Path: "/"}})
}

// otherCode returns a six digit code guaranteed to differ from code.
func otherCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	t.Run("creates a client by default", func(t *testing.T) {
		u, err := c.Signup(ctx, authsdk.SignupRequest{Email: "New@Example.com", Name: "New Person", Password: "longenough"})
		require.NoError(t, err)
		require.NotEmpty(t, u.ID)
		require.Equal(t, "new@example.com", u.Email)
		require.Equal(t, "client", u.Role)
		require.Empty(t, c.SessionCookie(), "signup must not sign in")
	})

	t.Run("duplicate email in any case", func(t *testing.T) {
		_, err := c.Signup(ctx, authsdk.SignupRequest{Email: "NEW@example.com", Name: "Again", Password: "longenough", Role: "talent"})
		requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeUserExists)
	})

	t.Run("field validation", func(t *testing.T) {
		_, err := c.Signup(ctx, authsdk.SignupRequest{Email: "nope", Name: "A", Password: "short", Role: "owner"})
		apiErr := requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
		require.Contains(t, apiErr.Details, "email")
		require.Contains(t, apiErr.Details, "name")
		require.Contains(t, apiErr.Details, "password")
		require.Contains(t, apiErr.Details, "role")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		resp, err := http.Post(s.URL+"/api/auth/signup", "application/json",
			strings.NewReader(`{"email":"x@example.com","name":"Xa","password":"longenough","mfaEnabled":true}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginWithoutMFA(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	res, err := c.Login(ctx, "client@example.com", "Client123!")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.False(t, res.NeedMFA)
	require.Nil(t, res.Hint)
	require.Equal(t, "client", res.User.Role)
	require.NotEmpty(t, c.SessionCookie())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "client@example.com", me.Email)
	require.Equal(t, "client", me.Role)
	require.True(t, me.MFAVerified)
	require.NotZero(t, me.ExpiresAt)

	require.NoError(t, c.Logout(ctx))
	require.Empty(t, c.SessionCookie())

	_, err = c.Me(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestMeSignedOutBody(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/api/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"authenticated":false,"user":null}`, string(body))
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	_, errWrongPw := c.Login(ctx, "admin@example.com", "not-it")
	_, errNoUser := c.Login(ctx, "ghost@example.com", "Admin123!")

	a := requireAPIError(t, errWrongPw, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	b := requireAPIError(t, errNoUser, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	require.Equal(t, a.Description, b.Description)
	require.Empty(t, c.SessionCookie())

	_, err := c.Login(ctx, "not-an-email", "x")
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
}

func TestMFAEnrolAndLogin(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	_, err := c.Login(ctx, "talent@example.com", "Talent123!")
	require.NoError(t, err)

	setup, err := c.SetupMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.OTPAuth, "otpauth://totp/"))

	// nothing is stored by setup
	u, err := s.users.FindByEmail(ctx, "talent@example.com")
	require.NoError(t, err)
	require.False(t, u.MFAEnabled)

	code, err := otpx.ComputeCode(setup.Secret, otpx.DefaultStep, time.Now())
	require.NoError(t, err)

	err = c.EnableMFA(ctx, setup.Secret, otherCode(code))
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCode)

	require.NoError(t, c.EnableMFA(ctx, setup.Secret, code))

	u, err = s.users.FindByEmail(ctx, "talent@example.com")
	require.NoError(t, err)
	require.True(t, u.MFAEnabled)

	require.NoError(t, c.Logout(ctx))

	t.Run("login now challenges", func(t *testing.T) {
		res, err := c.Login(ctx, "talent@example.com", "Talent123!")
		require.NoError(t, err)
		require.True(t, res.NeedMFA)
		require.True(t, res.Methods.TOTP)
		require.True(t, res.Methods.EmailOTP)
		require.NotNil(t, res.Hint)
		require.Len(t, res.Hint.EmailOTP, 6)
		require.Empty(t, c.SessionCookie(), "no cookie before the second factor")

		err = c.VerifyMFA(ctx, "talent@example.com", "email", otherCode(res.Hint.EmailOTP))
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCode)

		require.NoError(t, c.VerifyMFA(ctx, "talent@example.com", "email", res.Hint.EmailOTP))
		me, err := c.Me(ctx)
		require.NoError(t, err)
		require.True(t, me.MFAVerified)

		// single use
		err = c.VerifyMFA(ctx, "talent@example.com", "email", res.Hint.EmailOTP)
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCode)
	})

	t.Run("authenticator code works too", func(t *testing.T) {
		require.NoError(t, c.Logout(ctx))
		_, err := c.Login(ctx, "talent@example.com", "Talent123!")
		require.NoError(t, err)

		code, err := otpx.ComputeCode(setup.Secret, otpx.DefaultStep, time.Now())
		require.NoError(t, err)
		require.NoError(t, c.VerifyMFA(ctx, "talent@example.com", "totp", code))

		status, loc, err := c.Page(ctx, "/talent")
		require.NoError(t, err)
		require.Equal(t, http.StatusTemporaryRedirect, status)
		require.Equal(t, "/talent/dashboard", loc)
	})
}

func TestMFAVerifyFailures(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	err := c.VerifyMFA(ctx, "ghost@example.com", "email", "123456")
	requireAPIError(t, err, http.StatusNotFound, authsdk.ErrorCodeUserNotFound)

	err = c.VerifyMFA(ctx, "client@example.com", "totp", "123456")
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeTOTPNotConfigured)

	err = c.VerifyMFA(ctx, "client@example.com", "sms", "123456")
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	err = c.VerifyMFA(ctx, "client@example.com", "email", "12")
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	// no code was ever issued
	err = c.VerifyMFA(ctx, "client@example.com", "email", "123456")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCode)
}

func TestMFASetupNeedsVerifiedSession(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	_, err := c.SetupMFA(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	err = c.EnableMFA(ctx, "JBSWY3DPEHPK3PXP", "123456")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	u, err := s.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	s.plantSession(t, c, u, false)

	_, err = c.SetupMFA(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	err = c.EnableMFA(ctx, "JBSWY3DPEHPK3PXP", "123456")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	u, err = s.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.False(t, u.MFAEnabled)
}

func TestMFAEnableForDeletedUser(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	s.plantSession(t, c, domain.User{ID: "gone", Email: "gone@example.com", Name: "Gone", Role: domain.RoleClient}, true)

	secret, err := otpx.GenerateSecret("UI-RND", "gone@example.com", otpx.DefaultSecretSize)
	require.NoError(t, err)
	code, err := otpx.ComputeCode(secret.Base32, otpx.DefaultStep, time.Now())
	require.NoError(t, err)

	err = c.EnableMFA(ctx, secret.Base32, code)
	requireAPIError(t, err, http.StatusNotFound, authsdk.ErrorCodeUserNotFound)
}

func TestPortalGateThroughRouter(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	status, loc, err := c.Page(ctx, "/admin/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusTemporaryRedirect, status)
	require.Equal(t, "/login?next=%2Fadmin%2Fdashboard", loc)

	_, err = c.Login(ctx, "admin@example.com", "Admin123!")
	require.NoError(t, err)

	status, loc, err = c.Page(ctx, "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusTemporaryRedirect, status)
	require.Equal(t, "/admin/dashboard", loc)

	status, _, err = c.Page(ctx, "/admin/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	status, loc, err = c.Page(ctx, "/client/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusTemporaryRedirect, status)
	require.Equal(t, "/", loc)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	live, err := c.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Users)

	_, _ = c.Login(ctx, "client@example.com", "wrong-password")

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `portal_login_attempts_total{result="rejected"} 1`)

	resp2, err := http.Get(s.URL + "/api/auth/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyzDegraded(t *testing.T) {
	h := ReadyzHandler(time.Now(), "test", memory.NewStore(), failingPinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"otp_codes":"error: connection refused"`)
	require.Contains(t, rec.Body.String(), `"users":"ok"`)
}

func TestMFAVerifyGuessesCappedPerAccount(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	const secret = "JBSWY3DPEHPK3PXP"
	require.NoError(t, s.users.EnableMFA(ctx, "admin@example.com", secret))
	code, err := otpx.ComputeCode(secret, otpx.DefaultStep, time.Now())
	require.NoError(t, err)
	body := `{"email":"admin@example.com","method":"totp","code":"` + otherCode(code) + `"}`

	statuses := map[int]int{}
	for i := range 50 {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"/api/auth/mfa/verify", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i+1))
		req.Header.Set("X-Real-IP", "203.0.113."+strconv.Itoa(i+1))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		statuses[resp.StatusCode]++
	}

	require.Equal(t, httpx.StrictLimit.Burst, statuses[http.StatusUnauthorized], "statuses: %v", statuses)
	require.Equal(t, 50-httpx.StrictLimit.Burst, statuses[http.StatusTooManyRequests], "statuses: %v", statuses)
}

func TestMFAVerifyTrimsCode(t *testing.T) {
	s := newTestServer(t)
	c := authsdk.NewClient(s.URL)
	ctx := t.Context()

	const secret = "JBSWY3DPEHPK3PXP"
	require.NoError(t, s.users.EnableMFA(ctx, "client@example.com", secret))

	res, err := c.Login(ctx, "client@example.com", "Client123!")
	require.NoError(t, err)
	require.True(t, res.NeedMFA)
	require.NotNil(t, res.Hint)

	require.NoError(t, c.VerifyMFA(ctx, "client@example.com", "email", " "+res.Hint.EmailOTP+" "))
	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.MFAVerified)

	require.NoError(t, c.Logout(ctx))
	_, err = c.Login(ctx, "client@example.com", "Client123!")
	require.NoError(t, err)
	code, err := otpx.ComputeCode(secret, otpx.DefaultStep, time.Now())
	require.NoError(t, err)
	require.NoError(t, c.VerifyMFA(ctx, "client@example.com", "totp", code+" "))
}
