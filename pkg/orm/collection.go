package orm

import "context"

// Collection is an ordered list of records of one type.
type Collection []*Model

// Elements returns the records as a generic slice.
func (c Collection) Elements() []any {
	out := make([]any, len(c))
	for i, m := range c {
		out[i] = m
	}
	return out
}

// ToMaps converts every record with ToMap.
func (c Collection) ToMaps() []map[string]any {
	out := make([]map[string]any, len(c))
	for i, m := range c {
		out[i] = m.ToMap()
	}
	return out
}

// Keys returns the primary key of every record.
func (c Collection) Keys() []any {
	out := make([]any, len(c))
	for i, m := range c {
		out[i] = m.Key()
	}
	return out
}

// Load eager loads relations onto records that are already in memory.
func (c Collection) Load(ctx context.Context, relations ...string) error {
	if len(c) == 0 {
		return nil
	}
	return loadRelations(ctx, c[0].meta, c, relations)
}

// Load eager loads relations onto a single record.
func (m *Model) Load(ctx context.Context, relations ...string) error {
	return Collection{m}.Load(ctx, relations...)
}
