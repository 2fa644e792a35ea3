package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// SessionMiddleware verifies the session cookie when present and injects the
// claims into the request context. Requests without a valid session pass
// through untouched.
func SessionMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := verifySessionCookie(r, v); ok {
				r = r.WithContext(ContextWithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession is SessionMiddleware that rejects requests without a valid
// session with 401.
func RequireSession(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := verifySessionCookie(r, v)
			if !ok {
				WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":             "unauthorized",
					"error_description": "a valid session is required",
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func verifySessionCookie(r *http.Request, v jwtx.Verifier) (jwtx.Claims, bool) {
	raw := SessionToken(r)
	if raw == "" {
		return jwtx.Claims{}, false
	}

	claims, err := v.Verify(raw)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("session verify failed", "err", err)
		return jwtx.Claims{}, false
	}
	return claims, true
}
