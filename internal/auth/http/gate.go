package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/metricsx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

const (
	LoginPath  = "/login"
	SignupPath = "/signup"
	MFAPath    = "/mfa"

	// NeutralPath is where cross-role requests are sent.
	NeutralPath = "/"
)

// gateSkipPrefixes are never subject to page access rules.
var gateSkipPrefixes = []string{
	"/api/",
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/swagger/",
	"/livez",
	"/readyz",
	"/metrics",
}

// Decision is the outcome of Decide. An empty Redirect means allow.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

func allow() Decision { return Decision{} }

func redirect(path string, next string) Decision {
	if next == "" {
		return Decision{Redirect: path}
	}
	return Decision{Redirect: path + "?" + url.Values{"next": {next}}.Encode()}
}

// Decide applies the page access rules to a request for path. session is
// nil when the request carries no valid session. origin is used to validate
// a caller supplied "next" target.
func Decide(path string, query url.Values, session *domain.SessionPayload, origin string) Decision {
	_, protected := domain.RoleForPath(path)
	onMFA := isUnder(path, MFAPath)
	onAuth := isUnder(path, LoginPath) || isUnder(path, SignupPath)

	if session == nil {
		if protected || onMFA {
			return redirect(LoginPath, path)
		}
		return allow()
	}

	if onAuth {
		return redirect(session.Role.DashboardPath(), "")
	}

	if !session.MFAVerified {
		if onMFA {
			return allow()
		}
		return redirect(MFAPath, path)
	}

	if onMFA {
		if next := query.Get("next"); next != "" {
			return redirect(httpx.SafeNext(next, origin), "")
		}
		return redirect(session.Role.DashboardPath(), "")
	}

	if area, ok := domain.RoleForPath(path); ok {
		if area != session.Role {
			return redirect(NeutralPath, "")
		}
		if path == area.RootPath() {
			return redirect(area.DashboardPath(), "")
		}
	}

	return allow()
}

func isUnder(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func skipGate(path string) bool {
	for _, p := range gateSkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// GateMiddleware enforces Decide on page requests. It reads the session put
// in context by httpx.SessionMiddleware, which must run first.
func GateMiddleware(m *metricsx.Metrics) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipGate(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var session *domain.SessionPayload
			if p, ok := sessionFromContext(r.Context()); ok {
				session = &p
			}

			d := Decide(r.URL.Path, r.URL.Query(), session, httpx.RequestOrigin(r))
			if d.Allowed() {
				m.ObserveGate("allow")
				next.ServeHTTP(w, r)
				return
			}

			m.ObserveGate("redirect")
			slogx.FromContext(r.Context()).Debug("gate redirect",
				slog.String("to", d.Redirect),
				slog.Bool("session", session != nil),
			)
			http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
		})
	}
}

// sessionFromContext returns the verified session placed by the httpx
// session middlewares.
func sessionFromContext(ctx context.Context) (domain.SessionPayload, bool) {
	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		return domain.SessionPayload{}, false
	}
	p, err := service.PayloadFromClaims(claims)
	if err != nil {
		return domain.SessionPayload{}, false
	}
	return p, true
}
