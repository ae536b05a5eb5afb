package http

import (
	"context"
	"net/http"
)

type requestIDKey struct{}

// RequestIDHeader carries a request id between services.
const RequestIDHeader = "X-Request-ID"

// WithRequestID stores id in ctx so outbound calls can forward it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SetRequestID copies the id stored in the request context onto req.
func SetRequestID(req *http.Request) {
	if id := RequestIDFromContext(req.Context()); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
}
