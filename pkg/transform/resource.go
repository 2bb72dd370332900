package transform

import (
	"fmt"
	"reflect"
)

// Kind tags a Resource as a single item or a collection.
type Kind int

const (
	KindItem Kind = iota + 1
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Resource is an entity tagged with its shape, the transformer to run over
// it and, for paged collections, the paginator. The kind never changes once
// the resource is built.
type Resource struct {
	kind        Kind
	data        any
	transformer Transformer
	key         string
	paginator   Paginator
	meta        map[string]any
}

func newResource(kind Kind, data any, t Transformer, key string) *Resource {
	return &Resource{kind: kind, data: data, transformer: t, key: key, meta: map[string]any{}}
}

func (r *Resource) Kind() Kind               { return r.kind }
func (r *Resource) Data() any                { return r.data }
func (r *Resource) Key() string              { return r.key }
func (r *Resource) Transformer() Transformer { return r.transformer }
func (r *Resource) Paginator() Paginator     { return r.paginator }

// IsCollection reports whether the resource holds multiple elements.
func (r *Resource) IsCollection() bool { return r.kind == KindCollection }

// IsCollectionEntity reports whether entity should be serialized as a
// collection: a Collection or Paged value, or a non-empty slice whose first
// element is itself a map or slice.
func IsCollectionEntity(entity any) bool {
	switch entity.(type) {
	case Paged, Collection:
		return true
	}

	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	if v.Len() == 0 {
		return false
	}
	first := v.Index(0)
	for first.Kind() == reflect.Interface && !first.IsNil() {
		first = first.Elem()
	}
	return first.Kind() == reflect.Map || first.Kind() == reflect.Slice
}

// elements flattens a collection entity into its elements.
func elements(entity any) ([]any, error) {
	switch c := entity.(type) {
	case Collection:
		return c.Elements(), nil
	case []any:
		return c, nil
	}

	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not a collection", ErrUnsupportedEntity, entity)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}
