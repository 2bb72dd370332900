package transform

import "reflect"

// Transformations is embedded by handlers that transform entities with a
// default transformer. The zero value uses ModelTransformer.
type Transformations struct {
	Transformer Transformer
}

// TransformEntity runs entity through ResourceWith, UsingPaginatorIfPaged and
// Serialize. A nil transformer falls back to the embedded one, then to
// ModelTransformer; a nil serializer to DataSerializer.
func (t Transformations) TransformEntity(entity any, transformer Transformer, serializer Serializer) (any, error) {
	if transformer == nil {
		transformer = t.Transformer
	}
	if transformer == nil {
		transformer = ModelTransformer{}
	}
	if serializer == nil {
		serializer = DataSerializer{}
	}
	return NewFactory().
		ResourceWith(entity, transformer, "").
		UsingPaginatorIfPaged().
		Serialize(serializer)
}

// TransformEntity is TransformEntity on a zero Transformations.
func TransformEntity(entity any, transformer Transformer, serializer Serializer) (any, error) {
	return Transformations{}.TransformEntity(entity, transformer, serializer)
}

// isNil catches typed nils stored in interfaces, e.g. a (*orm.Model)(nil)
// relation.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
