package httputil

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	traceKey  contextKey = "trace"
)

// Trace collects facts learned further down the handler chain so outer
// middleware can report them after the inner handlers return or panic
type Trace struct {
	UserID string
}

// WithTrace attaches an empty trace to the request
func WithTrace(r *http.Request) (*http.Request, *Trace) {
	t := &Trace{}
	return r.WithContext(context.WithValue(r.Context(), traceKey, t)), t
}

// WithUserID stores the authenticated user's id in the request context
// and on the request's trace, if any
func WithUserID(r *http.Request, userID string) *http.Request {
	if t, ok := r.Context().Value(traceKey).(*Trace); ok {
		t.UserID = userID
	}
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user's id, or "" when unauthenticated
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
