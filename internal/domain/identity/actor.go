// Package identity carries the authenticated actor through a request.
// Repositories read the actor for audit columns instead of a global session.
package identity

import "context"

type actorKey struct{}

// Provider resolves the user id of the authenticated actor.
type Provider interface {
	AuthenticatedUser(ctx context.Context) (string, bool)
}

// WithActor returns a copy of ctx carrying userID as the acting user.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ContextProvider is the Provider backed by WithActor.
type ContextProvider struct{}

func (ContextProvider) AuthenticatedUser(ctx context.Context) (string, bool) {
	return ActorFrom(ctx)
}

// Static always reports the same actor, for batch jobs such as cmd/seed.
type Static string

func (s Static) AuthenticatedUser(context.Context) (string, bool) {
	return string(s), s != ""
}
