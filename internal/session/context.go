package session

import "context"

type sessionCtxKey struct{}

// WithSession returns a new context carrying the session.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// FromContext returns the session stored in the context, or nil when the
// request is unauthenticated.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	sess, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return sess
}
