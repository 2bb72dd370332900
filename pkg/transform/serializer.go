package transform

import (
	"net/url"
	"sort"
	"strconv"
)

// Query parameters owned by the paginator.
const (
	ParamPage    = "page"
	ParamPerPage = "per_page"
)

// Serializer wraps transformed data in an envelope.
type Serializer interface {
	Item(key string, data map[string]any) any
	Collection(key string, data []map[string]any) any
	Meta(meta map[string]any) map[string]any
}

// PaginatingSerializer also renders pagination metadata.
type PaginatingSerializer interface {
	Serializer
	Paginator(p Paginator) map[string]any
}

// DataSerializer puts data under "data" and merges meta, including the
// "pagination" block, at the top level. Query carries the request's query
// parameters so page links keep them.
type DataSerializer struct {
	Query url.Values
}

var _ PaginatingSerializer = DataSerializer{}

func (DataSerializer) Item(_ string, data map[string]any) any {
	return map[string]any{"data": data}
}

func (DataSerializer) Collection(_ string, data []map[string]any) any {
	return map[string]any{"data": data}
}

func (DataSerializer) Meta(meta map[string]any) map[string]any {
	return meta
}

func (s DataSerializer) Paginator(p Paginator) map[string]any {
	current := p.CurrentPage()
	last := p.LastPage()

	s.applyQuery(p)

	links := map[string]any{"next": nil, "previous": nil}
	if current > 1 {
		links["previous"] = p.URL(current - 1)
	}
	if current < last {
		links["next"] = p.URL(current + 1)
	}

	return map[string]any{
		"pagination": map[string]any{
			"total":        p.Total(),
			"count":        p.Count(),
			"per_page":     p.PerPage(),
			"current_page": current,
			"total_pages":  last,
			"links":        links,
		},
	}
}

// applyQuery forwards request parameters, except the ones the paginator
// controls, and pins per_page on generated links.
func (s DataSerializer) applyQuery(p Paginator) {
	keys := make([]string, 0, len(s.Query))
	for k := range s.Query {
		if k == ParamPage || k == ParamPerPage {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.AddQuery(k, s.Query.Get(k))
	}
	p.AddQuery(ParamPerPage, strconv.Itoa(p.PerPage()))
}

// ArraySerializer emits bare data: an item becomes a one element list and
// meta is always dropped.
type ArraySerializer struct{}

func (ArraySerializer) Item(_ string, data map[string]any) any {
	return []map[string]any{data}
}

func (ArraySerializer) Collection(_ string, data []map[string]any) any {
	return data
}

func (ArraySerializer) Meta(map[string]any) map[string]any {
	return map[string]any{}
}

// NestedSerializer emits the transformed value as is. It shapes included
// relations inside a parent payload.
type NestedSerializer struct{}

func (NestedSerializer) Item(_ string, data map[string]any) any {
	return data
}

func (NestedSerializer) Collection(_ string, data []map[string]any) any {
	return data
}

func (NestedSerializer) Meta(map[string]any) map[string]any {
	return map[string]any{}
}
