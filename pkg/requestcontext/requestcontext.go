// Package requestcontext carries per-request values set by HTTP middleware
// through to services and audit logging.
package requestcontext

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	clientIPKey
	userAgentKey
	clientNameKey
	subjectKey
)

// WithRequestID stores the correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithClientMetadata stores the resolved client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func ClientIP(ctx context.Context) string  { return stringValue(ctx, clientIPKey) }
func UserAgent(ctx context.Context) string { return stringValue(ctx, userAgentKey) }

// WithClientName stores a short, parsed client description such as
// "Firefox 128 (Linux)".
func WithClientName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientNameKey, name)
}

func ClientName(ctx context.Context) string { return stringValue(ctx, clientNameKey) }

// WithSubject stores the authenticated API caller.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func Subject(ctx context.Context) string { return stringValue(ctx, subjectKey) }

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
