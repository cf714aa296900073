// Package safeurl guards and redacts upstream URLs. Signed media locations carry
// their authorization in the query string, so they are never logged in full.
package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid absolute URL with scheme http or
// https and a host. file://, ftp:// and scheme-less strings are rejected.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	s := strings.ToLower(parsed.Scheme)
	return s == "http" || s == "https"
}

// Redact strips the query and fragment from u, keeping scheme, host and path.
func Redact(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i] + "?[redacted]"
	}
	return u
}
