// Package transform turns records, collections and pages of records into
// API payloads. A Transformer shapes each element, a Serializer wraps the
// result in an envelope, and the Factory decides between the two shapes and
// attaches pagination.
//
//	out, err := transform.NewFactory().
//		ResourceWith(page, UserTransformer, "users").
//		UsingPaginatorIfPaged().
//		Serialize(transform.DataSerializer{Query: r.URL.Query()})
package transform

import (
	"errors"
	"fmt"

	"github.com/NicolasHaas/godata/pkg/orm"
)

var (
	ErrInvalidArgument    = errors.New("transform: invalid argument")
	ErrInvalidSerializer  = fmt.Errorf("%w: a serializer is required", ErrInvalidArgument)
	ErrInvalidTransformer = fmt.Errorf("%w: a transformer is required", ErrInvalidArgument)
	ErrNotPaginated       = fmt.Errorf("%w: resource is not a paginated collection", ErrInvalidArgument)
	ErrNoResource         = fmt.Errorf("%w: no resource to serialize", ErrInvalidArgument)
	ErrUnsupportedEntity  = fmt.Errorf("%w: unsupported entity", ErrInvalidArgument)

	ErrNotExportable = errors.New("transform: entity does not support csv export")
)

// Paginator is the pagination provider a paginated collection exposes.
type Paginator interface {
	CurrentPage() int
	LastPage() int
	Total() int
	PerPage() int
	Count() int
	URL(page int) string
	AddQuery(key, value string)
}

// Collection is any multi-record container.
type Collection interface {
	Elements() []any
}

// Paged is one page of a larger result set.
type Paged interface {
	Paginator
	Collection
}

// Record is a single persisted entity with lazily loaded relations.
type Record interface {
	AttributesToMap() map[string]any
	RelationLoaded(name string) bool
	Relation(name string) any
}

// Arrayable converts itself to a map including loaded relations.
type Arrayable interface {
	ToMap() map[string]any
}

// Exportable declares which attribute paths go to which CSV headers.
type Exportable interface {
	CSVExportMap() ([]orm.ExportColumn, error)
}

var (
	_ Paged      = (*orm.Paginator)(nil)
	_ Collection = orm.Collection(nil)
	_ Record     = (*orm.Model)(nil)
	_ Arrayable  = (*orm.Model)(nil)
	_ Exportable = (*orm.Model)(nil)
)
