package authgate

import "context"

type clientIPContextKey struct{}

type userAgentContextKey struct{}

// WithClientIP attaches the caller's network origin to the context. The
// Engine uses it to key login throttling and to stamp audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the caller's user agent for audit metadata.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentContextKey{}, ua)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return ua
}
