package http

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// PortalHandler serves whatever sits behind the gate. With an upstream it
// reverse proxies to the dashboard frontend; without one it answers with a
// JSON description of the page, which is enough to exercise access rules.
func PortalHandler(upstream *url.URL) http.Handler {
	if upstream == nil {
		return http.HandlerFunc(portalPlaceholder)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogx.FromContext(r.Context()).Error("portal upstream failed", "err", err)
			httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{
				"error":             "bad_gateway",
				"error_description": "dashboard is unavailable",
			})
		},
	}
}

type portalPage struct {
	Path string `json:"path"`
	Role string `json:"role,omitempty"`
}

func portalPlaceholder(w http.ResponseWriter, r *http.Request) {
	page := portalPage{Path: r.URL.Path}
	if s, ok := sessionFromContext(r.Context()); ok {
		page.Role = string(s.Role)
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}
