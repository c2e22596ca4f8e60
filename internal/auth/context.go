package auth

import "context"

type contextKey string

const actorKey contextKey = "actor"

// WithActor records the authenticated identity for history attribution.
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey, email)
}

func ActorFromContext(ctx context.Context) string {
	a, _ := ctx.Value(actorKey).(string)
	return a
}
