// Package requestctx carries transport metadata (request id, client address)
// from the HTTP edge into the core without the core importing echo.
package requestctx

import "context"

type Meta struct {
	RequestID string
	ClientIP  string
}

type ctxKey struct{}

func With(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// From returns the metadata stored in ctx, or the zero Meta.
func From(ctx context.Context) Meta {
	m, _ := ctx.Value(ctxKey{}).(Meta)
	return m
}
