package transform

import "fmt"

// RelationTransformer expands loaded relations of a record.
type RelationTransformer interface {
	PossibleIncludes() map[string]Transformer
	ProcessRelations(rec Record) (map[string]any, error)
}

// BaseModelTransformer emits a record's visible attributes plus every
// relation in Includes that is loaded and non-nil, each shaped by its own
// transformer. Relations are never loaded here; use orm.Builder.With first.
type BaseModelTransformer struct {
	Includes map[string]Transformer
}

var _ RelationTransformer = BaseModelTransformer{}

func (t BaseModelTransformer) PossibleIncludes() map[string]Transformer {
	return t.Includes
}

func (t BaseModelTransformer) ProcessRelations(rec Record) (map[string]any, error) {
	out := make(map[string]any)
	for name, tr := range t.PossibleIncludes() {
		if !rec.RelationLoaded(name) {
			continue
		}
		value := rec.Relation(name)
		if isNil(value) {
			continue
		}
		nested, err := TransformEntity(value, tr, NestedSerializer{})
		if err != nil {
			return nil, fmt.Errorf("transform: include %s: %w", name, err)
		}
		out[name] = nested
	}
	return out, nil
}

func (t BaseModelTransformer) Transform(entity any) (map[string]any, error) {
	rec, ok := entity.(Record)
	if !ok {
		return nil, fmt.Errorf("%w: model transformer got %T", ErrUnsupportedEntity, entity)
	}
	out := rec.AttributesToMap()
	relations, err := t.ProcessRelations(rec)
	if err != nil {
		return nil, err
	}
	for k, v := range relations {
		out[k] = v
	}
	return out, nil
}
