package solr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// MatchAll is the query used for empty text.
const MatchAll = "*:*"

// BuildParams translates q into /select parameters for one window of rows
// starting at start. Facets are unlimited so every distinct value is counted.
func BuildParams(q *scout.Query, rows, start int) url.Values {
	params := url.Values{}
	set, add := params.Set, params.Add

	text := strings.TrimSpace(q.Text)
	if text == "" {
		text = MatchAll
	}
	set("q", text)
	set("wt", "json")

	for _, field := range q.WhereFields() {
		if fq := whereQuery(field, q.Wheres[field]); fq != "" {
			add("fq", fq)
		}
	}
	if v, ok := q.SoftDelete.Value(); ok {
		add("fq", scout.SoftDeletedField+":"+strconv.Itoa(v))
	}
	for _, group := range q.Filters {
		if fq := filterQuery(group); fq != "" {
			add("fq", fq)
		}
	}

	if sort := SortClause(q); sort != "" {
		set("sort", sort)
	}

	set("rows", strconv.Itoa(rows))
	if start > 0 {
		set("start", strconv.Itoa(start))
	}

	if len(q.Facets) > 0 {
		set("facet", "true")
		set("facet.mincount", "1")
		set("facet.limit", "-1")
		for _, f := range q.Facets {
			add("facet.field", f)
		}
	}

	return params
}

// SortClause returns the sort expression: the native Sort when set,
// otherwise the generic orders joined in call order.
func SortClause(q *scout.Query) string {
	if q.Sort != "" {
		return q.Sort
	}
	parts := make([]string, 0, len(q.Orders))
	for _, o := range q.Orders {
		parts = append(parts, o.Column+" "+string(o.Direction))
	}
	return strings.Join(parts, ",")
}

// whereQuery renders an exact match. A list value matches any of its
// elements, and an empty list adds no clause.
func whereQuery(field string, v any) string {
	values := scout.Values(v)
	if len(values) == 1 {
		return field + ":" + term(values[0])
	}
	return filterQuery(scout.FilterGroup{Field: field, Values: values})
}

// filterQuery renders one filter group as field:("a" OR "b"). Groups with
// no values are dropped.
func filterQuery(group scout.FilterGroup) string {
	if len(group.Values) == 0 {
		return ""
	}
	terms := make([]string, len(group.Values))
	for i, v := range group.Values {
		terms[i] = term(v)
	}
	return group.Field + ":(" + strings.Join(terms, " OR ") + ")"
}

// term renders a value for a field query. Numbers and booleans are bare,
// everything else is a quoted phrase.
func term(v any) string {
	switch t := v.(type) {
	case nil:
		return `""`
	case bool:
		return strconv.FormatBool(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return Quote(fmt.Sprint(t))
	}
}

// Quote returns s as a Solr phrase with quotes and backslashes escaped.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
