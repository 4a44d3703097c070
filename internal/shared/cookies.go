package shared

import (
	"net/url"
	"strings"
)

const (
	// BackendCSRFCookie is the cookie the sucursales backend issues its CSRF token in.
	BackendCSRFCookie = "csrftoken"
	// BackendCSRFHeader is the header the backend expects the token echoed in.
	BackendCSRFHeader = "X-CSRFToken"
)

// GetCookie looks up name in a raw Cookie header value. The value is
// percent-decoded; a value that fails to decode is returned as is. ok is false
// when no cookie with that exact name exists.
func GetCookie(header, name string) (value string, ok bool) {
	if header == "" || name == "" {
		return "", false
	}
	prefix := name + "="
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, prefix) {
			continue
		}
		raw := part[len(prefix):]
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return raw, true
		}
		return decoded, true
	}
	return "", false
}
