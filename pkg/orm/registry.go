// Package orm is a small record layer over database/sql: a per-process type
// registry, records with dirty tracking, a query builder with named global
// scopes, lifecycle events and a length-aware paginator.
package orm

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BootFunc runs exactly once when a type is first registered.
type BootFunc func(m *Meta)

// Registry holds every registered record type for one database handle.
type Registry struct {
	db     DB
	events *Dispatcher
	now    func() time.Time

	mu    sync.RWMutex
	types map[string]*Meta
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the timestamp source (tests pin it).
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithDispatcher shares an event dispatcher between registries.
func WithDispatcher(d *Dispatcher) RegistryOption {
	return func(r *Registry) { r.events = d }
}

// NewRegistry creates an empty registry bound to db.
func NewRegistry(db DB, opts ...RegistryOption) *Registry {
	r := &Registry{
		db:     db,
		events: NewDispatcher(),
		now:    time.Now,
		types:  make(map[string]*Meta),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a record type and runs its boot hooks. Registering a name a
// second time returns the already registered *Meta untouched.
func (r *Registry) Register(m *Meta, boots ...BootFunc) *Meta {
	r.mu.Lock()
	if existing, ok := r.types[m.Name]; ok {
		r.mu.Unlock()
		return existing
	}
	m.registry = r
	if m.Table == "" {
		m.Table = m.Name
	}
	r.types[m.Name] = m
	r.mu.Unlock()

	for _, boot := range boots {
		boot(m)
	}
	return m
}

// Type looks up a registered type by name.
func (r *Registry) Type(name string) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.types[name]
	return m, ok
}

// DB returns the database handle queries run against.
func (r *Registry) DB() DB { return r.db }

// Events returns the lifecycle dispatcher.
func (r *Registry) Events() *Dispatcher { return r.events }

// Now returns a fresh timestamp truncated to the storage resolution.
func (r *Registry) Now() time.Time {
	return r.now().UTC().Truncate(time.Second)
}
