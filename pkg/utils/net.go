package utils

import (
	"net/http"
	"strings"
)

// ExtractClientIP extracts the client IP address used as the rate limit key.
// It checks headers in the following priority order:
// 1. X-Forwarded-For (takes the first IP if multiple are present)
// 2. X-Real-IP
// 3. RemoteAddr (strips port if present)
//
// The service runs behind the hosting platform's proxy, which sets
// X-Forwarded-For on every request.
func ExtractClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		// "client, proxy1, proxy2"
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format: "IP:port" or "[IPv6]:port"
	remoteAddr := r.RemoteAddr
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]"); idx != -1 {
			return remoteAddr[1:idx]
		}
	}
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}
	return remoteAddr
}
