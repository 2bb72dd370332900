package orm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

const (
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

var (
	ErrMissingKey  = errors.New("orm: record type has no primary key")
	ErrNoExportMap = errors.New("orm: record type does not define an export map")
)

// Attributes holds column values keyed by column name.
type Attributes map[string]any

// Model is one record of a registered type.
type Model struct {
	meta       *Meta
	attributes Attributes
	original   Attributes
	relations  map[string]any
	exists     bool

	hidden  []string
	appends []string
}

func newModel(m *Meta) *Model {
	return &Model{
		meta:       m,
		attributes: Attributes{},
		original:   Attributes{},
		relations:  make(map[string]any),
		hidden:     append([]string(nil), m.Hidden...),
		appends:    append([]string(nil), m.Appends...),
	}
}

func hydrate(m *Meta, cols []string, values []any) (*Model, error) {
	rec := newModel(m)
	for i, col := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if m.isDate(col) {
			switch t := v.(type) {
			case string:
				parsed, err := ParseTime(t)
				if err != nil {
					return nil, fmt.Errorf("orm: hydrate %s.%s: %w", m.Name, col, err)
				}
				v = parsed
			case time.Time:
				v = t.UTC()
			}
		}
		rec.attributes[col] = v
	}
	rec.exists = true
	rec.SyncOriginal()
	return rec, nil
}

// Meta returns the record's type.
func (m *Model) Meta() *Meta { return m.meta }

// Table returns the record's table name.
func (m *Model) Table() string { return m.meta.Table }

// KeyName returns the primary key column, empty when the type has none.
func (m *Model) KeyName() string { return m.meta.PrimaryKey }

// Key returns the primary key value.
func (m *Model) Key() any {
	if m.meta.PrimaryKey == "" {
		return nil
	}
	return m.attributes[m.meta.PrimaryKey]
}

// Get returns the raw stored value of key.
func (m *Model) Get(key string) any { return m.attributes[key] }

// Set stores value under key, passing it through the type's mutator if any.
func (m *Model) Set(key string, value any) error {
	if mut, ok := m.meta.Mutators[key]; ok {
		v, err := mut(m, value)
		if err != nil {
			return fmt.Errorf("orm: set %s.%s: %w", m.meta.Name, key, err)
		}
		value = v
	}
	m.attributes[key] = value
	return nil
}

// SetRaw stores value without running mutators.
func (m *Model) SetRaw(key string, value any) { m.attributes[key] = value }

// Attributes returns a copy of the stored values.
func (m *Model) Attributes() Attributes {
	out := make(Attributes, len(m.attributes))
	for k, v := range m.attributes {
		out[k] = v
	}
	return out
}

// Exists reports whether the record is persisted.
func (m *Model) Exists() bool { return m.exists }

// SetExists marks the record as persisted (or not).
func (m *Model) SetExists(exists bool) { m.exists = exists }

// SyncOriginal makes the current values the clean baseline.
func (m *Model) SyncOriginal() {
	m.original = m.Attributes()
}

// SyncOriginalAttribute marks one column as clean.
func (m *Model) SyncOriginalAttribute(key string) {
	m.original[key] = m.attributes[key]
}

// Dirty returns the attributes changed since the last sync.
func (m *Model) Dirty() Attributes {
	dirty := Attributes{}
	for k, v := range m.attributes {
		orig, ok := m.original[k]
		if !ok || !sameValue(orig, v) {
			dirty[k] = v
		}
	}
	return dirty
}

// IsDirty reports whether any of keys (or any attribute, when none are
// given) changed since the last sync.
func (m *Model) IsDirty(keys ...string) bool {
	dirty := m.Dirty()
	if len(keys) == 0 {
		return len(dirty) > 0
	}
	for _, k := range keys {
		if _, ok := dirty[k]; ok {
			return true
		}
	}
	return false
}

// RelationLoaded reports whether relation name has been loaded.
func (m *Model) RelationLoaded(name string) bool {
	_, ok := m.relations[name]
	return ok
}

// Relation returns the loaded value of a relation: *Model, Collection or nil.
func (m *Model) Relation(name string) any { return m.relations[name] }

// SetRelation stores a loaded relation value.
func (m *Model) SetRelation(name string, value any) { m.relations[name] = value }

// AddAppends exposes extra accessor-backed attributes on this instance.
func (m *Model) AddAppends(names ...string) *Model {
	m.appends = append(m.appends, names...)
	return m
}

// RemoveAppends stops exposing accessor-backed attributes on this instance.
func (m *Model) RemoveAppends(names ...string) *Model {
	m.appends = without(m.appends, names)
	return m
}

// RemoveHidden unhides attributes on this instance.
func (m *Model) RemoveHidden(names ...string) *Model {
	m.hidden = without(m.hidden, names)
	return m
}

// AttributesToMap returns the visible attributes with accessors applied and
// appended attributes added. Relations are not included.
func (m *Model) AttributesToMap() map[string]any {
	out := make(map[string]any, len(m.attributes)+len(m.appends))
	for k, v := range m.attributes {
		if contains(m.hidden, k) {
			continue
		}
		if acc, ok := m.meta.Accessors[k]; ok {
			v = acc(m, v)
		}
		out[k] = v
	}
	for _, name := range m.appends {
		if contains(m.hidden, name) {
			continue
		}
		if acc, ok := m.meta.Accessors[name]; ok {
			out[name] = acc(m, m.attributes[name])
		}
	}
	return out
}

// ToMap is AttributesToMap plus every loaded, visible relation.
func (m *Model) ToMap() map[string]any {
	out := m.AttributesToMap()
	for name, rel := range m.relations {
		if contains(m.hidden, name) {
			continue
		}
		switch v := rel.(type) {
		case *Model:
			if v == nil {
				out[name] = nil
				continue
			}
			out[name] = v.ToMap()
		case Collection:
			out[name] = v.ToMaps()
		default:
			out[name] = v
		}
	}
	return out
}

// CSVExportMap returns the type's export declaration.
func (m *Model) CSVExportMap() ([]ExportColumn, error) {
	if len(m.meta.ExportMap) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExportMap, m.meta.Name)
	}
	return append([]ExportColumn(nil), m.meta.ExportMap...), nil
}

// NewQuery starts a scoped query for the record's type.
func (m *Model) NewQuery() *Builder { return m.meta.Query() }

// NewQueryWithoutScopes starts an unscoped query for the record's type.
func (m *Model) NewQueryWithoutScopes() *Builder { return m.meta.QueryWithoutScopes() }

// FreshTimestamp returns the registry's current time.
func (m *Model) FreshTimestamp() time.Time { return m.meta.registry.Now() }

// FireEvent dispatches event for this record. With halt set, listeners can
// veto and the return value is false when one did.
func (m *Model) FireEvent(ctx context.Context, event string, halt bool) bool {
	name := EventName(event, m.meta.Name)
	if halt {
		return m.meta.registry.events.Until(ctx, name, m)
	}
	m.meta.registry.events.Dispatch(ctx, name, m)
	return true
}

// Save inserts or updates the record. It returns false without writing when
// a "saving" listener vetoes.
func (m *Model) Save(ctx context.Context) (bool, error) {
	if !m.FireEvent(ctx, EventSaving, true) {
		return false, nil
	}
	now := m.FreshTimestamp()

	if m.exists {
		if err := m.performUpdate(ctx, now); err != nil {
			return false, err
		}
	} else {
		if err := m.performInsert(ctx, now); err != nil {
			return false, err
		}
	}

	m.SyncOriginal()
	m.FireEvent(ctx, EventSaved, false)
	return true, nil
}

func (m *Model) performUpdate(ctx context.Context, now time.Time) error {
	dirty := m.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	if m.meta.PrimaryKey == "" {
		return fmt.Errorf("orm: save %s: %w", m.meta.Name, ErrMissingKey)
	}
	if m.meta.Timestamps {
		if _, ok := dirty[ColumnUpdatedAt]; !ok {
			m.attributes[ColumnUpdatedAt] = now
			dirty[ColumnUpdatedAt] = now
		}
	}
	_, err := m.meta.QueryWithoutScopes().
		Where(m.meta.PrimaryKey, "=", m.Key()).
		Update(ctx, dirty)
	return err
}

func (m *Model) performInsert(ctx context.Context, now time.Time) error {
	if m.meta.Timestamps {
		if m.attributes[ColumnCreatedAt] == nil {
			m.attributes[ColumnCreatedAt] = now
		}
		if m.attributes[ColumnUpdatedAt] == nil {
			m.attributes[ColumnUpdatedAt] = now
		}
	}
	id, err := m.meta.QueryWithoutScopes().insert(ctx, m.attributes)
	if err != nil {
		return err
	}
	if pk := m.meta.PrimaryKey; pk != "" && m.attributes[pk] == nil {
		m.attributes[pk] = id
	}
	m.exists = true
	return nil
}

// Touch refreshes updated_at on the record's row.
func (m *Model) Touch(ctx context.Context) error {
	if !m.meta.Timestamps {
		return nil
	}
	if m.meta.PrimaryKey == "" {
		return fmt.Errorf("orm: touch %s: %w", m.meta.Name, ErrMissingKey)
	}
	now := m.FreshTimestamp()
	if _, err := m.meta.QueryWithoutScopes().
		Where(m.meta.PrimaryKey, "=", m.Key()).
		Update(ctx, map[string]any{ColumnUpdatedAt: now}); err != nil {
		return err
	}
	m.attributes[ColumnUpdatedAt] = now
	m.SyncOriginalAttribute(ColumnUpdatedAt)
	return nil
}

// TouchOwners refreshes updated_at on every parent named in Meta.Touches.
// Loaded parents are touched in memory too and cascade to their own owners.
func (m *Model) TouchOwners(ctx context.Context) error {
	for _, name := range m.meta.Touches {
		owner, rel, ok := m.meta.related(name)
		if !ok || rel.Kind != BelongsTo || !owner.Timestamps {
			continue
		}
		if parent, ok := m.relations[name].(*Model); ok && parent != nil {
			if err := parent.Touch(ctx); err != nil {
				return err
			}
			if err := parent.TouchOwners(ctx); err != nil {
				return err
			}
			continue
		}
		fk := m.attributes[rel.ForeignKey]
		if fk == nil {
			continue
		}
		ownerKey := rel.OwnerKey
		if ownerKey == "" {
			ownerKey = owner.PrimaryKey
		}
		if _, err := owner.QueryWithoutScopes().
			Where(ownerKey, "=", fk).
			Update(ctx, map[string]any{ColumnUpdatedAt: m.FreshTimestamp()}); err != nil {
			return fmt.Errorf("orm: touch %s owner %s: %w", m.meta.Name, name, err)
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list, remove []string) []string {
	out := list[:0:0]
	for _, v := range list {
		if !contains(remove, v) {
			out = append(out, v)
		}
	}
	return out
}
