package transform

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/NicolasHaas/godata/pkg/orm"
)

// Transformer shapes one element for output.
type Transformer interface {
	Transform(entity any) (map[string]any, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(entity any) (map[string]any, error)

func (f TransformerFunc) Transform(entity any) (map[string]any, error) { return f(entity) }

// ArrayTransformer passes maps through unchanged. An empty slice becomes an
// empty map.
type ArrayTransformer struct{}

func (ArrayTransformer) Transform(entity any) (map[string]any, error) {
	switch v := entity.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	}
	rv := reflect.ValueOf(entity)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 0 {
		return map[string]any{}, nil
	}
	return nil, fmt.Errorf("%w: array transformer got %T", ErrUnsupportedEntity, entity)
}

// ModelTransformer emits the full record including loaded relations.
type ModelTransformer struct{}

func (ModelTransformer) Transform(entity any) (map[string]any, error) {
	switch v := entity.(type) {
	case Arrayable:
		return v.ToMap(), nil
	case map[string]any:
		return v, nil
	}
	return nil, fmt.Errorf("%w: model transformer got %T", ErrUnsupportedEntity, entity)
}

// AttributesTransformer emits only the visible attributes, no relations.
type AttributesTransformer struct{}

func (AttributesTransformer) Transform(entity any) (map[string]any, error) {
	rec, ok := entity.(Record)
	if !ok {
		return nil, fmt.Errorf("%w: attributes transformer got %T", ErrUnsupportedEntity, entity)
	}
	return rec.AttributesToMap(), nil
}

// ExportTransformer flattens a record into header -> value following its
// export map. Paths use dots to reach into loaded relations; missing values
// are nil.
type ExportTransformer struct{}

func (ExportTransformer) Transform(entity any) (map[string]any, error) {
	exp, ok := entity.(Exportable)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotExportable, entity)
	}
	columns, err := exp.CSVExportMap()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotExportable, err)
	}

	var source map[string]any
	switch v := entity.(type) {
	case Arrayable:
		source = v.ToMap()
	case Record:
		source = v.AttributesToMap()
	}

	row := make(map[string]any, len(columns))
	for _, col := range columns {
		row[col.Header] = lookupPath(source, col.Path)
	}
	return row, nil
}

// ExportHeaders lists the headers of an export map in declaration order.
func ExportHeaders(columns []orm.ExportColumn) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

func lookupPath(source map[string]any, path string) any {
	var current any = source
	for _, step := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[step]
		if !ok {
			return nil
		}
	}
	return current
}
