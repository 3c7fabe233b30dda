package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/solrscout/internal/solr"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// DefaultRows mirrors Solr's default page size.
const DefaultRows = 10

// DefaultFacetSize sizes facet requests built without an index at hand.
// Engine.run resizes each facet to the field's term count.
const DefaultFacetSize = 100

// Tweak adapts a function over the Bleve request to a
// scout.BeforeExecuteFunc. Other engines' requests are ignored.
func Tweak(fn func(req *bleve.SearchRequest)) scout.BeforeExecuteFunc {
	return func(native any) {
		if req, ok := native.(*bleve.SearchRequest); ok {
			fn(req)
		}
	}
}

// Engine implements scout.Engine over a Bleve index in a Catalog.
// Responses use the Solr JSON envelope, so facets parse the same way.
type Engine[T any] struct {
	catalog *Catalog
	index   string
	mapper  *scout.Mapper[T]
	rows    int
}

// NewEngine creates an engine searching index by default.
func NewEngine[T any](catalog *Catalog, index string, mapper *scout.Mapper[T]) *Engine[T] {
	return &Engine[T]{
		catalog: catalog,
		index:   index,
		mapper:  mapper,
		rows:    DefaultRows,
	}
}

// Search implements scout.Engine.
func (e *Engine[T]) Search(ctx context.Context, q *scout.Query) (*scout.RawResponse, error) {
	return e.run(ctx, q, e.limit(q), 0, false)
}

// Keys implements scout.Engine.
func (e *Engine[T]) Keys(ctx context.Context, q *scout.Query) ([]string, error) {
	raw, err := e.run(ctx, q, e.limit(q), 0, true)
	if err != nil {
		return nil, err
	}
	return raw.IDs, nil
}

// Get implements scout.Engine.
func (e *Engine[T]) Get(ctx context.Context, q *scout.Query) ([]T, error) {
	raw, err := e.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return e.Map(ctx, q, raw)
}

// Paginate implements scout.Engine.
func (e *Engine[T]) Paginate(ctx context.Context, q *scout.Query, perPage, page int) (*scout.RawResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 0 {
		perPage = e.rows
	}
	return e.run(ctx, q, perPage, (page-1)*perPage, false)
}

// Map implements scout.Engine.
func (e *Engine[T]) Map(ctx context.Context, q *scout.Query, raw *scout.RawResponse) ([]T, error) {
	if e.mapper == nil {
		return nil, fmt.Errorf("embedded engine for index %s has no mapper", e.index)
	}
	return e.mapper.Map(ctx, q, raw)
}

// TotalCount implements scout.Engine.
func (e *Engine[T]) TotalCount(raw *scout.RawResponse) int {
	if raw == nil {
		return 0
	}
	return raw.Total
}

func (e *Engine[T]) limit(q *scout.Query) int {
	if q.Limit == nil || *q.Limit < 0 {
		return e.rows
	}
	return *q.Limit
}

func (e *Engine[T]) run(ctx context.Context, q *scout.Query, size, from int, keysOnly bool) (*scout.RawResponse, error) {
	name := q.Index
	if name == "" {
		name = e.index
	}
	idx, err := e.catalog.Index(name)
	if err != nil {
		return nil, fmt.Errorf("embedded index %s: %w", name, err)
	}

	req := BuildRequest(q, size, from)
	if keysOnly {
		req.Fields = nil
	}
	if err := sizeFacets(idx, req); err != nil {
		return nil, fmt.Errorf("embedded facets on %s: %w", name, err)
	}
	if q.BeforeExecute != nil {
		q.BeforeExecute(req)
	}

	start := time.Now()
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedded search on %s: %w", name, err)
	}

	body, resp, err := Envelope(res, from, time.Since(start))
	if err != nil {
		return nil, err
	}
	return solr.ToRaw(body, resp, "id"), nil
}

// sizeFacets widens every facet request to the number of distinct terms
// its field holds, so no value is cut from the counts.
func sizeFacets(idx bleve.Index, req *bleve.SearchRequest) error {
	for _, fr := range req.Facets {
		n, err := fieldCardinality(idx, fr.Field)
		if err != nil {
			return err
		}
		fr.Size = max(n, 1)
	}
	return nil
}

// fieldCardinality counts the terms in field's dictionary.
func fieldCardinality(idx bleve.Index, field string) (int, error) {
	dict, err := idx.FieldDict(field)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dict.Close() }()

	n := 0
	for {
		entry, err := dict.Next()
		if err != nil {
			return 0, err
		}
		if entry == nil {
			return n, nil
		}
		n++
	}
}

// BuildRequest translates q into a Bleve search request.
func BuildRequest(q *scout.Query, size, from int) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(buildQuery(q), size, from, false)
	req.Fields = []string{"*"}

	if sortBy := sortFields(q); len(sortBy) > 0 {
		req.SortBy(sortBy)
	}

	seen := map[string]bool{}
	for _, f := range q.Facets {
		if seen[f] {
			continue
		}
		seen[f] = true
		req.AddFacet(f, bleve.NewFacetRequest(f, DefaultFacetSize))
	}
	return req
}

func buildQuery(q *scout.Query) query.Query {
	var clauses []query.Query

	if text := strings.TrimSpace(q.Text); text != "" && text != solr.MatchAll {
		clauses = append(clauses, bleve.NewQueryStringQuery(text))
	}
	for _, field := range q.WhereFields() {
		if c := anyOf(field, scout.Values(q.Wheres[field])); c != nil {
			clauses = append(clauses, c)
		}
	}
	if v, ok := q.SoftDelete.Value(); ok {
		clauses = append(clauses, fieldQuery(scout.SoftDeletedField, v))
	}
	for _, group := range q.Filters {
		if c := anyOf(group.Field, group.Values); c != nil {
			clauses = append(clauses, c)
		}
	}

	switch len(clauses) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return clauses[0]
	default:
		return bleve.NewConjunctionQuery(clauses...)
	}
}

// anyOf matches field against any of values. No values means no clause.
func anyOf(field string, values []any) query.Query {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return fieldQuery(field, values[0])
	}
	alternatives := make([]query.Query, len(values))
	for i, v := range values {
		alternatives[i] = fieldQuery(field, v)
	}
	return bleve.NewDisjunctionQuery(alternatives...)
}

// fieldQuery matches one exact value: numbers as a single-point range,
// booleans as bool terms, everything else as a keyword term. Strings that
// read as a number or boolean (from query strings) match either form.
func fieldQuery(field string, v any) query.Query {
	if n, ok := number(v); ok {
		return numericQuery(field, n)
	}
	if b, ok := v.(bool); ok {
		return boolQuery(field, b)
	}

	text := fmt.Sprint(v)
	term := bleve.NewTermQuery(text)
	term.SetField(field)

	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return bleve.NewDisjunctionQuery(term, numericQuery(field, n))
	}
	if b, err := strconv.ParseBool(text); err == nil && (text == "true" || text == "false") {
		return bleve.NewDisjunctionQuery(term, boolQuery(field, b))
	}
	return term
}

func numericQuery(field string, n float64) query.Query {
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

func boolQuery(field string, b bool) query.Query {
	q := bleve.NewBoolFieldQuery(b)
	q.SetField(field)
	return q
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// sortFields converts the sort expression (or the generic orders) to
// Bleve sort keys. Solr's "score" maps to "_score".
func sortFields(q *scout.Query) []string {
	expr := solr.SortClause(q)
	if expr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(expr, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		column := fields[0]
		if column == "score" {
			column = "_score"
		}
		dir := scout.Asc
		if len(fields) > 1 {
			dir = scout.NormalizeDirection(fields[1])
		}
		if dir == scout.Desc {
			column = "-" + column
		}
		out = append(out, column)
	}
	return out
}

// Envelope renders a Bleve result as a Solr JSON response.
func Envelope(res *bleve.SearchResult, start int, took time.Duration) ([]byte, *solr.Response, error) {
	resp := &solr.Response{
		ResponseHeader: solr.Header{Status: 0, QTime: int(took.Milliseconds())},
		Response: &solr.Result{
			NumFound: int(res.Total),
			Start:    start,
			Docs:     make([]scout.Document, 0, len(res.Hits)),
		},
	}

	for _, hit := range res.Hits {
		resp.Response.Docs = append(resp.Response.Docs, hitDocument(hit))
	}

	if len(res.Facets) > 0 {
		resp.FacetCounts = &solr.FacetCounts{
			FacetQueries: map[string]int{},
			FacetFields:  make(map[string][]any, len(res.Facets)),
		}
		for name, fr := range res.Facets {
			resp.FacetCounts.FacetFields[name] = flatten(fr)
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return body, resp, nil
}

func hitDocument(hit *search.DocumentMatch) scout.Document {
	doc := make(scout.Document, len(hit.Fields)+1)
	for k, v := range hit.Fields {
		doc[k] = v
	}
	doc["id"] = hit.ID
	return doc
}

// flatten writes term counts as [value, count, ...], highest count first
// and ties by value, like Solr's facet.sort=count.
func flatten(fr *search.FacetResult) []any {
	out := []any{}
	if fr == nil || fr.Terms == nil {
		return out
	}
	terms := fr.Terms.Terms()
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	for _, t := range terms {
		if t.Count < 1 {
			continue
		}
		out = append(out, t.Term, t.Count)
	}
	return out
}
