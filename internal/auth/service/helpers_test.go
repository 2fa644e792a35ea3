package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source shared by the services under test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingMailer struct {
	sent map[string]string
}

func (m *recordingMailer) SendLoginCode(ctx context.Context, email, code string) error {
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[email] = code
	return nil
}

type testEnv struct {
	clock    *fakeClock
	users    *UserService
	emailOTP *EmailOTPService
	sessions *SessionService
	auth     *AuthService
	mfa      *MFAService
	mailer   *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	st := memory.NewStore()

	codec, err := jwtx.NewHS256Codec([]byte("service-test-secret"), "portal-auth")
	require.NoError(t, err)

	users := &UserService{Store: st}
	emailOTP := NewEmailOTPService(st.OTPCodes())
	emailOTP.Now = clock.Now
	sessions := &SessionService{Codec: codec, TTL: jwtx.DefaultSessionTTL}
	mailer := &recordingMailer{}

	return &testEnv{
		clock:    clock,
		users:    users,
		emailOTP: emailOTP,
		sessions: sessions,
		mailer:   mailer,
		auth: &AuthService{
			Users:    users,
			EmailOTP: emailOTP,
			Sessions: sessions,
			Mailer:   mailer,
			Now:      clock.Now,
		},
		mfa: &MFAService{Users: users, Issuer: "UI-RND", Now: clock.Now},
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string, role domain.Role) domain.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), NewUser{Email: email, Name: "Test User", Password: password, Role: role})
	require.NoError(t, err)
	return u
}
