package bannable

import (
	"context"

	"github.com/NicolasHaas/godata/pkg/orm"
)

// Scope hides banned rows from every query of the type it is booted on.
type Scope struct{}

// Apply implements orm.Scope.
func (Scope) Apply(q *orm.Builder, _ *orm.Meta) {
	q.WhereOwnNull(column(q))
}

// column is the type's banned-at column. The builder qualifies it once the
// compiled query has joins.
func column(q *orm.Builder) string {
	return q.Meta().Column(DefaultColumn)
}

// Ban stamps every row the query matches. The banning scope stays active,
// so already banned rows keep their original timestamp.
func Ban(ctx context.Context, q *orm.Builder) (int64, error) {
	m := q.Meta()
	return q.Update(ctx, map[string]any{m.Column(DefaultColumn): m.Registry().Now()})
}

// Unban clears the banned-at column on every matching row, banned or not.
func Unban(ctx context.Context, q *orm.Builder) (int64, error) {
	m := q.Meta()
	return WithBanned(q).Update(ctx, map[string]any{m.Column(DefaultColumn): nil})
}

// WithBanned removes the banning scope from q.
func WithBanned(q *orm.Builder) *orm.Builder {
	return q.WithoutGlobalScope(ScopeName)
}

// WithoutBanned removes the scope and filters banned rows explicitly.
func WithoutBanned(q *orm.Builder) *orm.Builder {
	return q.WithoutGlobalScope(ScopeName).WhereOwnNull(column(q))
}

// OnlyBanned removes the scope and keeps banned rows only.
func OnlyBanned(q *orm.Builder) *orm.Builder {
	return q.WithoutGlobalScope(ScopeName).WhereOwnNotNull(column(q))
}
