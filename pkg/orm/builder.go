package orm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUpdateWithJoins is returned when Update is called on a joined query.
var ErrUpdateWithJoins = errors.New("orm: update does not support joined queries")

type whereKind int

const (
	whereBasic whereKind = iota
	whereNull
	whereNotNull
	whereIn
)

type where struct {
	kind   whereKind
	column string
	op     string
	value  any
	values []any
	// own columns belong to the builder's table and are qualified at
	// compile time when the query has joins.
	own bool
}

type join struct {
	kind   string
	table  string
	first  string
	op     string
	second string
}

type order struct {
	column string
	desc   bool
}

// Builder composes a query against one record type. Global scopes of the
// type are applied when the query is compiled, so scopes see the final chain
// (joins included). A Builder is not safe for concurrent use.
type Builder struct {
	meta    *Meta
	columns []string
	wheres  []where
	joins   []join
	orders  []order
	limit   int
	offset  int
	eager   []string

	removed   map[string]bool
	removeAll bool
	scoped    bool
}

func newBuilder(m *Meta) *Builder {
	return &Builder{meta: m, removed: make(map[string]bool)}
}

// Meta returns the record type the builder queries.
func (b *Builder) Meta() *Meta { return b.meta }

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	c := *b
	c.columns = append([]string(nil), b.columns...)
	c.wheres = append([]where(nil), b.wheres...)
	c.joins = append([]join(nil), b.joins...)
	c.orders = append([]order(nil), b.orders...)
	c.eager = append([]string(nil), b.eager...)
	c.removed = make(map[string]bool, len(b.removed))
	for k, v := range b.removed {
		c.removed[k] = v
	}
	return &c
}

// Select restricts the selected columns.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds "column op ?".
func (b *Builder) Where(column, op string, value any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereBasic, column: column, op: op, value: value})
	return b
}

// WhereNull adds "column IS NULL".
func (b *Builder) WhereNull(column string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, column: column})
	return b
}

// WhereNotNull adds "column IS NOT NULL".
func (b *Builder) WhereNotNull(column string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNotNull, column: column})
	return b
}

// WhereOwnNull adds "column IS NULL" for a column of the queried table. The
// column is table-qualified if the compiled query joins other tables, however
// late the join is added.
func (b *Builder) WhereOwnNull(column string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNull, column: column, own: true})
	return b
}

// WhereOwnNotNull is the IS NOT NULL counterpart of WhereOwnNull.
func (b *Builder) WhereOwnNotNull(column string) *Builder {
	b.wheres = append(b.wheres, where{kind: whereNotNull, column: column, own: true})
	return b
}

// WhereIn adds "column IN (...)". An empty list matches nothing.
func (b *Builder) WhereIn(column string, values []any) *Builder {
	b.wheres = append(b.wheres, where{kind: whereIn, column: column, values: values})
	return b
}

// Join adds an inner join.
func (b *Builder) Join(table, first, op, second string) *Builder {
	b.joins = append(b.joins, join{kind: "INNER", table: table, first: first, op: op, second: second})
	return b
}

// LeftJoin adds a left join.
func (b *Builder) LeftJoin(table, first, op, second string) *Builder {
	b.joins = append(b.joins, join{kind: "LEFT", table: table, first: first, op: op, second: second})
	return b
}

// HasJoins reports whether the query joins other tables.
func (b *Builder) HasJoins() bool { return len(b.joins) > 0 }

// OrderBy sorts by column; direction is "asc" or "desc".
func (b *Builder) OrderBy(column, direction string) *Builder {
	b.orders = append(b.orders, order{column: column, desc: strings.EqualFold(direction, "desc")})
	return b
}

// Limit caps the number of rows; zero means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Scopes applies local scopes in order.
func (b *Builder) Scopes(scopes ...ScopeFunc) *Builder {
	for _, s := range scopes {
		b = s(b)
	}
	return b
}

// WithoutGlobalScope suspends one named global scope for this query.
func (b *Builder) WithoutGlobalScope(name string) *Builder {
	b.removed[name] = true
	return b
}

// WithoutGlobalScopes suspends every global scope for this query.
func (b *Builder) WithoutGlobalScopes() *Builder {
	b.removeAll = true
	return b
}

// RemovedScopes lists the global scopes suspended on this query.
func (b *Builder) RemovedScopes() []string {
	if b.removeAll {
		return b.meta.GlobalScopeNames()
	}
	var names []string
	for _, name := range b.meta.GlobalScopeNames() {
		if b.removed[name] {
			names = append(names, name)
		}
	}
	return names
}

// With eager loads relations after Get. Dot notation loads nested relations;
// names the type does not declare are dropped.
func (b *Builder) With(relations ...string) *Builder {
	b.eager = append(b.eager, relations...)
	return b
}

func (b *Builder) applyScopes() *Builder {
	c := b.Clone()
	if b.scoped || b.removeAll {
		c.scoped = true
		return c
	}
	for _, name := range b.meta.GlobalScopeNames() {
		if b.removed[name] {
			continue
		}
		if s := b.meta.globalScope(name); s != nil {
			s.Apply(c, b.meta)
		}
	}
	c.scoped = true
	return c
}

// ToSQL compiles the SELECT statement with global scopes applied.
func (b *Builder) ToSQL() (string, []any) {
	c := b.applyScopes()
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(c.compileColumns())
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(c.meta.Table))
	sb.WriteString(c.compileJoins())
	where, args := c.compileWheres()
	sb.WriteString(where)
	if len(c.orders) > 0 {
		parts := make([]string, 0, len(c.orders))
		for _, o := range c.orders {
			dir := "ASC"
			if o.desc {
				dir = "DESC"
			}
			parts = append(parts, quoteIdent(o.column)+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if c.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", c.limit)
	}
	if c.offset > 0 {
		if c.limit <= 0 {
			sb.WriteString(" LIMIT -1")
		}
		fmt.Fprintf(&sb, " OFFSET %d", c.offset)
	}
	return sb.String(), args
}

func (b *Builder) compileColumns() string {
	if len(b.columns) == 0 {
		if b.HasJoins() {
			return quoteIdent(b.meta.Table) + ".*"
		}
		return "*"
	}
	parts := make([]string, 0, len(b.columns))
	for _, c := range b.columns {
		parts = append(parts, quoteIdent(c))
	}
	return strings.Join(parts, ", ")
}

func (b *Builder) compileJoins() string {
	var sb strings.Builder
	for _, j := range b.joins {
		fmt.Fprintf(&sb, " %s JOIN %s ON %s %s %s", j.kind, quoteIdent(j.table), quoteIdent(j.first), j.op, quoteIdent(j.second))
	}
	return sb.String()
}

func (b *Builder) compileWheres() (string, []any) {
	if len(b.wheres) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(b.wheres))
	var args []any
	for _, w := range b.wheres {
		name := w.column
		if w.own && b.HasJoins() {
			name = b.meta.QualifyColumn(name)
		}
		col := quoteIdent(name)
		switch w.kind {
		case whereNull:
			parts = append(parts, col+" IS NULL")
		case whereNotNull:
			parts = append(parts, col+" IS NOT NULL")
		case whereIn:
			if len(w.values) == 0 {
				parts = append(parts, "0 = 1")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(w.values)), ", ")
			parts = append(parts, col+" IN ("+marks+")")
			for _, v := range w.values {
				args = append(args, bindValue(v))
			}
		default:
			parts = append(parts, col+" "+w.op+" ?")
			args = append(args, bindValue(w.value))
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// Get runs the query and hydrates the matching records.
func (b *Builder) Get(ctx context.Context) (Collection, error) {
	query, args := b.ToSQL()
	rows, err := b.meta.registry.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orm: query %s: %w", b.meta.Name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("orm: columns %s: %w", b.meta.Name, err)
	}

	coll := Collection{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("orm: scan %s: %w", b.meta.Name, err)
		}
		rec, err := hydrate(b.meta, cols, values)
		if err != nil {
			return nil, err
		}
		coll = append(coll, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orm: iterate %s: %w", b.meta.Name, err)
	}

	if len(b.eager) > 0 && len(coll) > 0 {
		if err := loadRelations(ctx, b.meta, coll, b.eager); err != nil {
			return nil, err
		}
	}
	return coll, nil
}

// First returns the first matching record, or (nil, nil) when none match.
func (b *Builder) First(ctx context.Context) (*Model, error) {
	coll, err := b.Clone().Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(coll) == 0 {
		return nil, nil
	}
	return coll[0], nil
}

// Find returns the record with primary key id, or (nil, nil).
func (b *Builder) Find(ctx context.Context, id any) (*Model, error) {
	return b.Clone().Where(b.meta.PrimaryKey, "=", id).First(ctx)
}

// Count returns the number of matching rows.
func (b *Builder) Count(ctx context.Context) (int, error) {
	c := b.applyScopes()
	where, args := c.compileWheres()
	query := "SELECT COUNT(*) FROM " + quoteIdent(c.meta.Table) + c.compileJoins() + where

	var n int
	if err := b.meta.registry.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("orm: count %s: %w", b.meta.Name, err)
	}
	return n, nil
}

// Paginate returns one page of results together with the total count.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) (*Paginator, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total, err := b.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := b.Clone().Limit(perPage).Offset((page - 1) * perPage).Get(ctx)
	if err != nil {
		return nil, err
	}
	return NewPaginator(items, total, perPage, page), nil
}

// Update sets values on every matching row and returns the affected count.
// Types with timestamps get updated_at refreshed unless values sets it.
func (b *Builder) Update(ctx context.Context, values map[string]any) (int64, error) {
	if b.HasJoins() {
		return 0, ErrUpdateWithJoins
	}
	values = cloneValues(values)
	if b.meta.Timestamps {
		if _, ok := values[ColumnUpdatedAt]; !ok {
			values[ColumnUpdatedAt] = b.meta.registry.Now()
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		sets = append(sets, quoteIdent(k)+" = ?")
		args = append(args, bindValue(values[k]))
	}

	c := b.applyScopes()
	where, whereArgs := c.compileWheres()
	query := "UPDATE " + quoteIdent(c.meta.Table) + " SET " + strings.Join(sets, ", ") + where
	args = append(args, whereArgs...)

	res, err := b.meta.registry.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("orm: update %s: %w", b.meta.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("orm: update %s: %w", b.meta.Name, err)
	}
	return n, nil
}

func (b *Builder) insert(ctx context.Context, values map[string]any) (int64, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, quoteIdent(k))
		args = append(args, bindValue(values[k]))
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + quoteIdent(b.meta.Table) + " DEFAULT VALUES"
	} else {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query = "INSERT INTO " + quoteIdent(b.meta.Table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
	}

	res, err := b.meta.registry.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("orm: insert %s: %w", b.meta.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("orm: insert %s: %w", b.meta.Name, err)
	}
	return id, nil
}

func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	return out
}
