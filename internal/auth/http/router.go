package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/metricsx"
	"github.com/aussiebroadwan/portal/pkg/slogx"

	_ "github.com/aussiebroadwan/portal/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers. Set the exported
// fields, then call ApplyRoutes.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	UserService *service.UserService
	AuthService *service.AuthService
	MFAService  *service.MFAService
	Metrics     *metricsx.Metrics

	// Stores probed by /readyz. OTPStore may be nil when codes share the
	// user store.
	UserStore Pinger
	OTPStore  Pinger

	// Portal serves page requests that pass the gate.
	Portal http.Handler

	SecureCookies bool
	ExposeOTPHint bool
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}
}

func (r *Router) ApplyRoutes() {
	// Metrics must be innermost so it can read the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Metrics.HTTPMiddleware(),
	}

	r.registerAuth()
	r.registerMFA()
	r.registerSystem()
	r.registerPortal()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Portal Authentication Service API
//	@version					0.1.0
//	@description				Session and credential management for the admin, client and talent dashboards.
//	@description				Sessions are HS256 signed tokens carried in an HTTP-only cookie named "session".
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/portal
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						session
//	@description				Session token set by login or MFA verification.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Auth:          r.AuthService,
		Users:         r.UserService,
		Metrics:       r.Metrics,
		SecureCookies: r.SecureCookies,
		ExposeOTPHint: r.ExposeOTPHint,
	}

	// Login is limited per address and submitted email.
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.SessionMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Unknown auth routes must not fall through to the portal.
	r.Mux.HandleFunc("/api/auth/", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "no such auth endpoint",
		})
	})
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		Auth:          r.AuthService,
		MFA:           r.MFAService,
		Metrics:       r.Metrics,
		SecureCookies: r.SecureCookies,
	}

	// TOTP has no attempt counter of its own; the per-account bucket caps
	// guesses however many addresses they come from.
	r.Mux.Handle("POST /api/auth/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
			httpx.RateLimitByJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /api/auth/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			httpx.RequireSession(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	// Enable checks a code, so it gets the strict profile.
	r.Mux.Handle("POST /api/auth/mfa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.RequireSession(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.UserStore, r.OTPStore),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}

// registerPortal puts every other path behind the gate.
func (r *Router) registerPortal() {
	portal := r.Portal
	if portal == nil {
		portal = PortalHandler(nil)
	}
	r.Mux.Handle("/",
		httpx.Chain(portal,
			httpx.RateLimitByIP(httpx.PublicLimit),
			httpx.SessionMiddleware(r.verifier),
			GateMiddleware(r.Metrics),
		),
	)
}
