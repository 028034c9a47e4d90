package services

import "context"

// Identity is the resolved caller: who the platform says is on the other
// end of the connection. Handlers thread it explicitly into every mutation;
// nil means unauthenticated.
type Identity struct {
	UserID      string
	DisplayName string
}

type ctxKey int

const identityKey ctxKey = iota

// WithIdentity attaches the caller identity to the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext resolves the caller identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return nil, false
	}
	return &id, true
}
