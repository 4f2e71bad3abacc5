package server

import "context"

type contextKey string

const (
	ctxKeyUserID    contextKey = "user_id"
	ctxKeySessionID contextKey = "session_id"
	ctxKeyIP        contextKey = "ip_address"
	ctxKeyUserAgent contextKey = "user_agent"
)

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyUserID).(string)
	return v, ok && v != ""
}

// SessionIDFromContext returns the session id bound to the access token.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeySessionID).(string)
	return v, ok && v != ""
}

// RequestMetaFromContext extracts the caller's IP and user agent for the
// audit trail. Both are empty outside an HTTP request.
func RequestMetaFromContext(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(ctxKeyIP).(string)
	userAgent, _ = ctx.Value(ctxKeyUserAgent).(string)
	return ip, userAgent
}
