package middleware

import (
	"context"

	"github.com/petcare/vetclinic-backend/internal/identity"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// ActorFromContext returns the caller resolved by Auth, or the anonymous actor.
func ActorFromContext(ctx context.Context) identity.Actor {
	if ctx == nil {
		return identity.Anonymous()
	}
	if v, ok := ctx.Value(ctxActor).(identity.Actor); ok {
		return v
	}
	return identity.Anonymous()
}

// AccessIDFromContext returns the session key of the current token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the resolved caller into the context.
func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// WithAccessID injects the session key into the context.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
