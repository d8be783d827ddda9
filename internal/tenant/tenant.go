package tenant

import "context"

// Context is the scoping value every storage call runs under. Namespace
// isolates tenants at the query layer; UserID is optional and only used
// for audit fields. It is carried explicitly on context.Context and never
// persisted.
type Context struct {
	Namespace string
	UserID    string
}

func (c Context) IsZero() bool {
	return c.Namespace == ""
}

type ctxKey struct{}

// NewContext returns ctx carrying tc.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts the tenant scope. Background jobs re-establish it
// from their arguments before touching storage, so ok is false only on a
// wiring mistake.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok && !tc.IsZero()
}
