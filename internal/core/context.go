package core

import "context"

type contextKey string

const ctxKeyOrigin contextKey = "import_origin"

// Origin identifies who sent a bulk import, for the import history.
type Origin struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// ContextWithOrigin attaches the request origin to ctx.
func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, o)
}

// OriginFromContext returns the origin stored by ContextWithOrigin, or the
// zero Origin.
func OriginFromContext(ctx context.Context) Origin {
	if o, ok := ctx.Value(ctxKeyOrigin).(Origin); ok {
		return o
	}
	return Origin{}
}
