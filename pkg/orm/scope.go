package orm

// Scope is a named predicate applied to every query of a type unless the
// query removes it.
type Scope interface {
	Apply(b *Builder, m *Meta)
}

// ScopeFunc is a local scope: a reusable builder modification.
// Usage: users.Query().Scopes(bannable.Banned).Get(ctx)
type ScopeFunc = func(*Builder) *Builder

// ScopeApplier adapts a plain function to the Scope interface.
type ScopeApplier func(b *Builder, m *Meta)

// Apply implements Scope.
func (f ScopeApplier) Apply(b *Builder, m *Meta) { f(b, m) }
