package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"kycengine/pkg/requestcontext"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-Actor"
)

// RequestMetadata copies request ID, declared actor and client IP into the
// context. A request ID is generated when the caller did not send one.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, reqID)
		ctx = requestcontext.WithClientIP(ctx, ClientIPFromRequest(r))
		if actor := strings.TrimSpace(r.Header.Get(HeaderActor)); actor != "" {
			ctx = requestcontext.WithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
