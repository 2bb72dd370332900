package orm

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPerPage is used when Paginate gets a non-positive page size.
const DefaultPerPage = 15

// Paginator is one page of a result set that knows the total row count.
type Paginator struct {
	items       Collection
	total       int
	perPage     int
	currentPage int

	path     string
	pageName string
	query    url.Values
}

// NewPaginator wraps items as page currentPage of total rows.
func NewPaginator(items Collection, total, perPage, currentPage int) *Paginator {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if currentPage < 1 {
		currentPage = 1
	}
	return &Paginator{
		items:       items,
		total:       total,
		perPage:     perPage,
		currentPage: currentPage,
		path:        "/",
		pageName:    "page",
		query:       url.Values{},
	}
}

func (p *Paginator) Items() Collection { return p.items }
func (p *Paginator) Elements() []any   { return p.items.Elements() }
func (p *Paginator) Total() int        { return p.total }
func (p *Paginator) PerPage() int      { return p.perPage }
func (p *Paginator) CurrentPage() int  { return p.currentPage }
func (p *Paginator) Count() int        { return len(p.items) }

// LastPage is never less than 1, even for an empty result.
func (p *Paginator) LastPage() int {
	last := (p.total + p.perPage - 1) / p.perPage
	return max(last, 1)
}

// HasMorePages reports whether pages follow the current one.
func (p *Paginator) HasMorePages() bool { return p.currentPage < p.LastPage() }

// SetPath sets the base path page URLs are built on.
func (p *Paginator) SetPath(path string) *Paginator {
	p.path = path
	return p
}

// SetPageName changes the query parameter carrying the page number.
func (p *Paginator) SetPageName(name string) *Paginator {
	p.pageName = name
	return p
}

// AddQuery appends a parameter to every generated page URL. The page
// parameter itself is ignored.
func (p *Paginator) AddQuery(key, value string) {
	if key == p.pageName {
		return
	}
	p.query.Set(key, value)
}

// URL returns the link to page.
func (p *Paginator) URL(page int) string {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	for k, v := range p.query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(p.pageName, strconv.Itoa(page))

	sep := "?"
	if strings.Contains(p.path, "?") {
		sep = "&"
	}
	return p.path + sep + q.Encode()
}

// NextPageURL is empty on the last page.
func (p *Paginator) NextPageURL() string {
	if !p.HasMorePages() {
		return ""
	}
	return p.URL(p.currentPage + 1)
}

// PreviousPageURL is empty on the first page.
func (p *Paginator) PreviousPageURL() string {
	if p.currentPage <= 1 {
		return ""
	}
	return p.URL(p.currentPage - 1)
}
