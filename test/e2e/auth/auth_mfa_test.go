//go:build e2e

package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// enrollTOTP signs in as email and enables an authenticator for the account.
// It returns the secret and leaves the client signed out.
func enrollTOTP(t *testing.T, client *authsdk.Client, email, password string) string {
	t.Helper()
	ctx := t.Context()

	performLogin(t, client, email, password)

	setup, err := client.SetupMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuth, "otpauth://totp/")

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, client.EnableMFA(ctx, setup.Secret, code))
	require.NoError(t, client.Logout(ctx))

	return setup.Secret
}

// TestMFAEnrollmentAndAuthentication enables TOTP then signs in with each
// second factor.
func TestMFAEnrollmentAndAuthentication(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	ctx := t.Context()

	secret := enrollTOTP(t, client, talentEmail, talentPassword)

	// Authenticator code
	login := performLogin(t, client, talentEmail, talentPassword)
	require.True(t, login.NeedMFA)
	require.True(t, login.Methods.TOTP)
	require.True(t, login.Methods.EmailOTP)
	require.Empty(t, client.SessionCookie(), "no session before the second factor")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, client.VerifyMFA(ctx, talentEmail, "totp", code))

	me, err := client.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.MFAVerified)
	require.NoError(t, client.Logout(ctx))

	// Email code from the non-production hint
	login = performLogin(t, client, talentEmail, talentPassword)
	require.NotNil(t, login.Hint)
	require.NoError(t, client.VerifyMFA(ctx, talentEmail, "email", login.Hint.EmailOTP))

	err = client.VerifyMFA(ctx, talentEmail, "email", login.Hint.EmailOTP)
	assertUnauthorized(t, err, "email codes are single use")

	t.Logf("MFA sign-in succeeded with both methods")
}

// TestMFAInvalidScenarios covers rejected verification attempts.
func TestMFAInvalidScenarios(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	ctx := t.Context()

	t.Run("unknown account", func(t *testing.T) {
		err := client.VerifyMFA(ctx, "ghost@example.com", "email", "123456")
		apiErr := requireStatus(t, err, http.StatusNotFound)
		require.Equal(t, authsdk.ErrorCodeUserNotFound, apiErr.Code)
	})

	t.Run("totp without enrolment", func(t *testing.T) {
		err := client.VerifyMFA(ctx, clientEmail, "totp", "123456")
		apiErr := requireStatus(t, err, http.StatusBadRequest)
		require.Equal(t, authsdk.ErrorCodeTOTPNotConfigured, apiErr.Code)
	})

	t.Run("no pending email code", func(t *testing.T) {
		err := client.VerifyMFA(ctx, clientEmail, "email", "123456")
		assertUnauthorized(t, err, "no code was issued")
	})

	t.Run("setup needs a session", func(t *testing.T) {
		_, err := client.SetupMFA(ctx)
		assertUnauthorized(t, err, "signed out")
	})

	t.Run("enable rejects a wrong code", func(t *testing.T) {
		performLogin(t, client, adminEmail, adminPassword)
		setup, err := client.SetupMFA(ctx)
		require.NoError(t, err)

		code, err := totp.GenerateCode(setup.Secret, time.Now())
		require.NoError(t, err)
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		err = client.EnableMFA(ctx, setup.Secret, wrong)
		apiErr := requireStatus(t, err, http.StatusUnauthorized)
		require.Equal(t, authsdk.ErrorCodeInvalidCode, apiErr.Code)
	})
}

// TestMFAEmailCodeAttemptLimit verifies five wrong guesses burn the code.
func TestMFAEmailCodeAttemptLimit(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	ctx := t.Context()

	enrollTOTP(t, client, clientEmail, clientPassword)
	login := performLogin(t, client, clientEmail, clientPassword)
	require.NotNil(t, login.Hint)

	wrong := "000000"
	if login.Hint.EmailOTP == wrong {
		wrong = "111111"
	}
	for range 5 {
		err := client.VerifyMFA(ctx, clientEmail, "email", wrong)
		assertUnauthorized(t, err, "wrong code")
	}

	err := client.VerifyMFA(ctx, clientEmail, "email", login.Hint.EmailOTP)
	assertUnauthorized(t, err, "code is gone after too many attempts")
}
