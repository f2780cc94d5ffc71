// Package identity carries the authenticated caller through request
// contexts. Authentication itself happens upstream; by the time a request
// reaches this server the external auth layer has established a stable
// user id and email.
package identity

import "context"

type contextKey struct{}

type Identity struct {
	UserID string
	Email  string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}
