package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/otpx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("ENV", "")
	t.Setenv("AUTH_STORE", "")
	t.Setenv("AUTH_SEED_DEMO_USERS", "")
	t.Setenv("AUTH_SESSION_TTL", "")

	cfg := LoadConfig()
	require.Equal(t, "s3cret", cfg.Secret)
	require.Equal(t, "portal-auth", cfg.Issuer)
	require.Equal(t, 8*time.Hour, cfg.SessionTTL)
	require.Equal(t, "memory", cfg.StoreDriver)
	require.Equal(t, "development", cfg.Env)
	require.True(t, cfg.SeedDemoUsers)
	require.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigProduction(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_SEED_DEMO_USERS", "")
	t.Setenv("AUTH_SESSION_TTL", "28800")
	t.Setenv("AUTH_STORE", "SQLite")

	cfg := LoadConfig()
	require.True(t, cfg.IsProduction())
	require.False(t, cfg.SeedDemoUsers)
	require.Equal(t, 8*time.Hour, cfg.SessionTTL, "bare integers are seconds")
	require.Equal(t, "sqlite", cfg.StoreDriver)
}

func TestLoadConfigTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,172.16.0.1 ")
	require.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, LoadConfig().TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "")
	require.Empty(t, LoadConfig().TrustedProxies)
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "", want: time.Minute},
		{value: "90s", want: 90 * time.Second},
		{value: "2h", want: 2 * time.Hour},
		{value: "28800", want: 8 * time.Hour},
		{value: "0", want: time.Minute},
		{value: "-5", want: time.Minute},
		{value: "soon", want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PORTAL_TEST_DURATION", tt.value)
			require.Equal(t, tt.want, getEnvDurationOrDefault("PORTAL_TEST_DURATION", time.Minute))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{Secret: "x", StoreDriver: "memory"}},
		{name: "missing secret", cfg: Config{StoreDriver: "memory"}, wantErr: true},
		{name: "unknown driver", cfg: Config{Secret: "x", StoreDriver: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{StoreDriver: "memory"})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Secret:               "app-test-secret",
		Issuer:               "portal-auth",
		SessionTTL:           time.Hour,
		StoreDriver:          "memory",
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		SeedDemoUsers:        true,
		MFAIssuer:            "UI-RND",
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Minute,
	}
}

func startApp(t *testing.T, cfg Config) *authsdk.Client {
	t.Helper()
	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.close() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)
	return authsdk.NewClient(srv.URL)
}

func TestApplicationLoginFlow(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StoreDriver = driver
			c := startApp(t, cfg)
			ctx := t.Context()

			status, loc, err := c.Page(ctx, "/client")
			require.NoError(t, err)
			require.Equal(t, http.StatusTemporaryRedirect, status)
			require.Equal(t, "/login?next=%2Fclient", loc)

			res, err := c.Login(ctx, "client@example.com", "Client123!")
			require.NoError(t, err)
			require.False(t, res.NeedMFA)

			status, loc, err = c.Page(ctx, "/client")
			require.NoError(t, err)
			require.Equal(t, http.StatusTemporaryRedirect, status)
			require.Equal(t, "/client/dashboard", loc)

			ready, err := c.GetReadiness(ctx)
			require.NoError(t, err)
			require.Equal(t, "ok", ready.Status)
		})
	}
}

func TestApplicationWithoutSeeding(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedDemoUsers = false
	c := startApp(t, cfg)

	_, err := c.Login(t.Context(), "admin@example.com", "Admin123!")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)
}

func TestApplicationRedisEmailCodes(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	c := startApp(t, cfg)
	ctx := t.Context()

	_, err := c.Signup(ctx, authsdk.SignupRequest{Email: "mfa@example.com", Name: "Mfa User", Password: "Password1!"})
	require.NoError(t, err)

	// No MFA yet, so login signs in directly and nothing reaches redis.
	_, err = c.Login(ctx, "mfa@example.com", "Password1!")
	require.NoError(t, err)
	require.Empty(t, mr.Keys())

	setup, err := c.SetupMFA(ctx)
	require.NoError(t, err)
	code, err := otpx.ComputeCode(setup.Secret, otpx.DefaultStep, time.Now())
	require.NoError(t, err)
	require.NoError(t, c.EnableMFA(ctx, setup.Secret, code))
	require.NoError(t, c.Logout(ctx))

	res, err := c.Login(ctx, "mfa@example.com", "Password1!")
	require.NoError(t, err)
	require.True(t, res.NeedMFA)
	require.Len(t, mr.Keys(), 1)
	require.True(t, mr.TTL(mr.Keys()[0]) > 0, "email codes expire in redis too")

	require.NoError(t, c.VerifyMFA(ctx, "mfa@example.com", "email", res.Hint.EmailOTP))
	require.Empty(t, mr.Keys(), "a used code is gone")

	ready, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.OTPCodes)

	mr.Close()
	_, err = c.GetReadiness(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestApplicationRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := New(cfg)
	require.ErrorContains(t, err, "failed to connect to redis")
}

func TestApplicationInvalidUpstream(t *testing.T) {
	cfg := testConfig(t)
	cfg.PortalUpstream = "not a url"

	_, err := New(cfg)
	require.ErrorContains(t, err, "PORTAL_UPSTREAM")
}

func TestApplicationInvalidTrustedProxies(t *testing.T) {
	cfg := testConfig(t)
	cfg.TrustedProxies = []string{"proxy.internal"}

	_, err := New(cfg)
	require.ErrorContains(t, err, "TRUSTED_PROXIES")
}
