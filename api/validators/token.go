package validators

import (
	"net/http"
	"strings"
)

// BearerToken extracts the session token from the Authorization header,
// falling back to cookieName when the header is absent.
func BearerToken(r *http.Request, cookieName string) string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
