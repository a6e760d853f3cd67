package reasoning

import "context"

type ctxKey string

const sessionIDKey ctxKey = "gekko-session-id"

// WithSessionID attaches a session id to the context so middleware (usage
// accounting, logging) can attribute calls without threading the id through
// every call site.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the attached session id, or "" when absent.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}
