package gateway

import (
	"net/http"
	"strings"
)

// ProtocolContext is the externally-visible scheme and host for one request,
// used as the base for every absolute URL the gateway emits. Players resolve
// relative playlist URIs against their own document context, so the gateway
// must emit absolute URLs that survive TLS-terminating proxies the player
// never sees.
type ProtocolContext struct {
	Scheme string
	Host   string
}

// ProtocolContextFrom derives the context from the request. Priority, first
// match wins: X-Forwarded-Proto (first comma-separated token), the
// connection's own TLS flag, X-Forwarded-Ssl: on, then plain http. Host is
// taken verbatim from the Host header. There are no error cases.
func ProtocolContextFrom(r *http.Request) ProtocolContext {
	scheme := ""
	if v := r.Header.Get("X-Forwarded-Proto"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		scheme = strings.TrimSpace(first)
	}
	if scheme == "" {
		switch {
		case r.TLS != nil:
			scheme = "https"
		case strings.EqualFold(r.Header.Get("X-Forwarded-Ssl"), "on"):
			scheme = "https"
		default:
			scheme = "http"
		}
	}
	return ProtocolContext{Scheme: scheme, Host: r.Host}
}

// BaseURL returns "{scheme}://{host}".
func (p ProtocolContext) BaseURL() string {
	return p.Scheme + "://" + p.Host
}
