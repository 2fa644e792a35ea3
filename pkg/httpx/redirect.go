package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// SafeNext validates a caller supplied return path. Absolute URLs are only
// accepted for origin and are reduced to their path and query. Relative
// targets must start with a single "/". Anything else becomes "/".
func SafeNext(raw, origin string) string {
	if raw == "" {
		return "/"
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "/"
	}
	decoded = strings.TrimSpace(decoded)

	u, err := url.Parse(decoded)
	if err != nil {
		return "/"
	}

	if u.IsAbs() || u.Host != "" {
		o, err := url.Parse(origin)
		if err != nil || o.Host == "" {
			return "/"
		}
		if !strings.EqualFold(u.Scheme, o.Scheme) || !strings.EqualFold(u.Host, o.Host) {
			return "/"
		}
		return pathWithQuery(u)
	}

	if !strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, "//") || strings.HasPrefix(decoded, "/\\") {
		return "/"
	}
	return pathWithQuery(u)
}

func pathWithQuery(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// RequestOrigin reconstructs scheme://host for r, honouring
// X-Forwarded-Proto from a fronting proxy.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
