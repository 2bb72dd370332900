package orm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSchema is returned by Fields when the registry's handle cannot
// describe tables.
var ErrNoSchema = errors.New("orm: handle cannot describe tables")

// SchemaDescriber is implemented by handles that can list a table's columns.
type SchemaDescriber interface {
	ColumnNames(ctx context.Context, table string) ([]string, error)
}

// RelationKind tells the eager loader how two tables are linked.
type RelationKind int

const (
	BelongsTo RelationKind = iota // foreign key lives on this table
	HasMany                       // foreign key lives on the related table
	HasOne
)

// Relation declares a link to another registered type.
type Relation struct {
	Kind       RelationKind
	Related    string // registered type name
	ForeignKey string
	// OwnerKey is the referenced column; defaults to the owner's primary key.
	OwnerKey string
}

// AccessorFunc shapes a stored value on the way out.
type AccessorFunc func(m *Model, value any) any

// MutatorFunc shapes an incoming value before it is stored.
type MutatorFunc func(m *Model, value any) (any, error)

// ExportColumn maps a (dot separated) attribute path to a CSV header.
type ExportColumn struct {
	Path   string `yaml:"path"`
	Header string `yaml:"header"`
}

// Meta describes one record type. Fields are set before Register and are
// read-only afterwards; global scopes are guarded for late registration.
type Meta struct {
	Name       string
	Table      string
	PrimaryKey string // empty means the type has no primary key
	Timestamps bool   // maintain created_at / updated_at

	// Dates are parsed into time.Time when hydrated.
	Dates []string
	// Hidden attributes are left out of AttributesToMap.
	Hidden []string
	// Appends are virtual attributes computed by Accessors.
	Appends   []string
	Accessors map[string]AccessorFunc
	Mutators  map[string]MutatorFunc

	Relations map[string]Relation
	// Touches lists BelongsTo relations whose parent gets its updated_at
	// bumped when this record changes state.
	Touches []string

	// Columns overrides logical column names, e.g. "banned_at".
	Columns map[string]string

	ExportMap []ExportColumn

	registry *Registry

	mu         sync.RWMutex
	scopes     map[string]Scope
	scopeOrder []string
}

// Registry returns the registry the type was registered with.
func (m *Meta) Registry() *Registry { return m.registry }

// Fields lists the columns of the type's table in declaration order. An
// unknown table yields an empty list.
func (m *Meta) Fields(ctx context.Context) ([]string, error) {
	var d SchemaDescriber
	if m.registry != nil {
		d, _ = m.registry.db.(SchemaDescriber)
	}
	if d == nil {
		return nil, fmt.Errorf("orm: fields %s: %w", m.Name, ErrNoSchema)
	}
	fields, err := d.ColumnNames(ctx, m.Table)
	if err != nil {
		return nil, fmt.Errorf("orm: fields %s: %w", m.Name, err)
	}
	return fields, nil
}

// Column resolves a logical column name through the per-type overrides.
func (m *Meta) Column(logical string) string {
	if c, ok := m.Columns[logical]; ok && c != "" {
		return c
	}
	return logical
}

// QualifyColumn prefixes column with the table name.
func (m *Meta) QualifyColumn(column string) string {
	return m.Table + "." + column
}

// AddGlobalScope registers a scope applied to every query of this type.
// Adding a name that already exists keeps the first scope.
func (m *Meta) AddGlobalScope(name string, s Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scopes == nil {
		m.scopes = make(map[string]Scope)
	}
	if _, ok := m.scopes[name]; ok {
		return
	}
	m.scopes[name] = s
	m.scopeOrder = append(m.scopeOrder, name)
}

// HasGlobalScope reports whether a scope with name is registered.
func (m *Meta) HasGlobalScope(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.scopes[name]
	return ok
}

// GlobalScopeNames lists registered scopes in registration order.
func (m *Meta) GlobalScopeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.scopeOrder...)
}

func (m *Meta) globalScope(name string) Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopes[name]
}

// Listen registers a lifecycle listener for event on this type.
func (m *Meta) Listen(event string, l Listener) {
	m.registry.events.Listen(EventName(event, m.Name), l)
}

// HasListeners reports whether any listener exists for event on this type.
func (m *Meta) HasListeners(event string) bool {
	return m.registry.events.HasListeners(EventName(event, m.Name))
}

// New builds an unsaved record, running mutators over attrs.
func (m *Meta) New(attrs Attributes) (*Model, error) {
	rec := newModel(m)
	for k, v := range attrs {
		if err := rec.Set(k, v); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Query starts a builder with the type's global scopes active.
func (m *Meta) Query() *Builder {
	return newBuilder(m)
}

// QueryWithoutScopes starts a builder with every global scope removed.
func (m *Meta) QueryWithoutScopes() *Builder {
	return newBuilder(m).WithoutGlobalScopes()
}

func (m *Meta) related(name string) (*Meta, Relation, bool) {
	rel, ok := m.Relations[name]
	if !ok {
		return nil, Relation{}, false
	}
	other, ok := m.registry.Type(rel.Related)
	if !ok {
		return nil, Relation{}, false
	}
	return other, rel, true
}

func (m *Meta) isDate(column string) bool {
	for _, d := range m.Dates {
		if d == column {
			return true
		}
	}
	return m.Timestamps && (column == ColumnCreatedAt || column == ColumnUpdatedAt)
}
