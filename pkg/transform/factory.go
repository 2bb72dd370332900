package transform

// Factory builds a Resource and runs it through a Serializer. Methods chain;
// the first error sticks and is returned by Serialize. A Factory is meant to
// be used once per payload and is not safe for concurrent use.
type Factory struct {
	resource *Resource
	err      error
}

func NewFactory() *Factory {
	return &Factory{}
}

// ResourceWith picks the collection shape for Paged, Collection and
// slice-of-maps entities and the item shape for anything else.
func (f *Factory) ResourceWith(entity any, t Transformer, key string) *Factory {
	if IsCollectionEntity(entity) {
		return f.CollectionWith(entity, t, key)
	}
	return f.ItemWith(entity, t, key)
}

// CollectionWith forces the collection shape.
func (f *Factory) CollectionWith(entity any, t Transformer, key string) *Factory {
	return f.set(KindCollection, entity, t, key)
}

// ItemWith forces the item shape.
func (f *Factory) ItemWith(entity any, t Transformer, key string) *Factory {
	return f.set(KindItem, entity, t, key)
}

func (f *Factory) set(kind Kind, entity any, t Transformer, key string) *Factory {
	if f.err != nil {
		return f
	}
	if t == nil {
		f.err = ErrInvalidTransformer
		return f
	}
	f.resource = newResource(kind, entity, t, key)
	return f
}

// UsingPaginatorIfPaged attaches the entity's paginator when the resource is
// a paged collection and does nothing otherwise.
func (f *Factory) UsingPaginatorIfPaged() *Factory {
	if f.err != nil || f.resource == nil || !f.resource.IsCollection() {
		return f
	}
	if _, ok := f.resource.data.(Paged); !ok {
		return f
	}
	return f.UsingPaginator(nil)
}

// UsingPaginator attaches pagination to a paged collection. A nil override
// uses the entity itself. Any other resource fails with ErrNotPaginated.
func (f *Factory) UsingPaginator(override Paginator) *Factory {
	if f.err != nil {
		return f
	}
	if f.resource == nil || !f.resource.IsCollection() {
		f.err = ErrNotPaginated
		return f
	}
	paged, ok := f.resource.data.(Paged)
	if !ok {
		f.err = ErrNotPaginated
		return f
	}
	if override != nil {
		f.resource.paginator = override
	} else {
		f.resource.paginator = paged
	}
	return f
}

// WithMeta adds a top level meta entry; serializers decide whether to emit it.
func (f *Factory) WithMeta(key string, value any) *Factory {
	if f.err != nil || f.resource == nil {
		return f
	}
	f.resource.meta[key] = value
	return f
}

// Resource returns the resource built so far, nil before ResourceWith.
func (f *Factory) Resource() *Resource { return f.resource }

// Err returns the first error recorded by the chain.
func (f *Factory) Err() error { return f.err }

// Serialize transforms every element and wraps the result with s.
func (f *Factory) Serialize(s Serializer) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s == nil {
		return nil, ErrInvalidSerializer
	}
	r := f.resource
	if r == nil {
		return nil, ErrNoResource
	}

	var payload any
	switch r.kind {
	case KindCollection:
		items, err := elements(r.data)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			row, err := r.transformer.Transform(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		payload = s.Collection(r.key, rows)
	default:
		row, err := r.transformer.Transform(r.data)
		if err != nil {
			return nil, err
		}
		payload = s.Item(r.key, row)
	}

	meta := make(map[string]any, len(r.meta)+1)
	for k, v := range r.meta {
		meta[k] = v
	}
	if r.paginator != nil {
		if ps, ok := s.(PaginatingSerializer); ok {
			for k, v := range ps.Paginator(r.paginator) {
				meta[k] = v
			}
		}
	}

	if out, ok := payload.(map[string]any); ok {
		for k, v := range s.Meta(meta) {
			out[k] = v
		}
	}
	return payload, nil
}
