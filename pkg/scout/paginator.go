package scout

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageName is the query parameter that carries the page number.
const DefaultPageName = "page"

// Paginator is one page of items with the metadata needed to render links.
type Paginator[T any] struct {
	Items       []T
	Total       int
	PerPage     int
	CurrentPage int
	Path        string
	PageName    string

	query url.Values
}

// NewPaginator creates a paginator. A page below 1 is treated as 1.
func NewPaginator[T any](items []T, total, perPage, currentPage int, path, pageName string) *Paginator[T] {
	if currentPage < 1 {
		currentPage = 1
	}
	if pageName == "" {
		pageName = DefaultPageName
	}
	if path == "" {
		path = "/"
	}
	if items == nil {
		items = []T{}
	}
	return &Paginator[T]{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: currentPage,
		Path:        path,
		PageName:    pageName,
		query:       url.Values{},
	}
}

// Appends adds a query parameter to every generated link.
func (p *Paginator[T]) Appends(key, value string) *Paginator[T] {
	if key == p.PageName {
		return p
	}
	p.query.Set(key, value)
	return p
}

// Query returns the extra link parameters.
func (p *Paginator[T]) Query() url.Values {
	return p.query
}

// Count returns the number of items on this page.
func (p *Paginator[T]) Count() int {
	return len(p.Items)
}

// LastPage returns the number of the last page, at least 1.
func (p *Paginator[T]) LastPage() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// HasMorePages reports whether a page follows the current one.
func (p *Paginator[T]) HasMorePages() bool {
	return p.CurrentPage < p.LastPage()
}

// OnFirstPage reports whether this is the first page.
func (p *Paginator[T]) OnFirstPage() bool {
	return p.CurrentPage <= 1
}

// FirstItem returns the 1-based position of the first item, or 0 when the page is empty.
func (p *Paginator[T]) FirstItem() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.PerPage + 1
}

// LastItem returns the 1-based position of the last item, or 0 when the page is empty.
func (p *Paginator[T]) LastItem() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.FirstItem() + len(p.Items) - 1
}

// URL returns the link for page, including appended parameters.
func (p *Paginator[T]) URL(page int) string {
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	for k, v := range p.query {
		params[k] = v
	}
	params.Set(p.PageName, strconv.Itoa(page))

	sep := "?"
	if strings.Contains(p.Path, "?") {
		sep = "&"
	}
	return p.Path + sep + params.Encode()
}

// NextPageURL returns the next page link, or "" on the last page.
func (p *Paginator[T]) NextPageURL() string {
	if !p.HasMorePages() {
		return ""
	}
	return p.URL(p.CurrentPage + 1)
}

// PreviousPageURL returns the previous page link, or "" on the first page.
func (p *Paginator[T]) PreviousPageURL() string {
	if p.OnFirstPage() {
		return ""
	}
	return p.URL(p.CurrentPage - 1)
}

type paginatorJSON[T any] struct {
	CurrentPage  int     `json:"current_page"`
	Data         []T     `json:"data"`
	FirstPageURL string  `json:"first_page_url"`
	From         *int    `json:"from"`
	LastPage     int     `json:"last_page"`
	LastPageURL  string  `json:"last_page_url"`
	NextPageURL  *string `json:"next_page_url"`
	Path         string  `json:"path"`
	PerPage      int     `json:"per_page"`
	PrevPageURL  *string `json:"prev_page_url"`
	To           *int    `json:"to"`
	Total        int     `json:"total"`
}

// MarshalJSON encodes the page in the length-aware paginator layout.
func (p *Paginator[T]) MarshalJSON() ([]byte, error) {
	out := paginatorJSON[T]{
		CurrentPage:  p.CurrentPage,
		Data:         p.Items,
		FirstPageURL: p.URL(1),
		LastPage:     p.LastPage(),
		LastPageURL:  p.URL(p.LastPage()),
		NextPageURL:  optional(p.NextPageURL()),
		Path:         p.Path,
		PerPage:      p.PerPage,
		PrevPageURL:  optional(p.PreviousPageURL()),
		Total:        p.Total,
	}
	if len(p.Items) > 0 {
		from, to := p.FirstItem(), p.LastItem()
		out.From, out.To = &from, &to
	}
	return json.Marshal(out)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
