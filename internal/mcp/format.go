package mcp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Aman-CERP/solrscout/internal/search"
	"github.com/Aman-CERP/solrscout/internal/store"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Limits for tool inputs.
const (
	MaxPerPage       = 100
	DefaultKeysLimit = 100
	MaxKeysLimit     = 1000
)

// FormatRecords renders a search_records result as markdown.
func FormatRecords(model, query string, out SearchRecordsOutput) string {
	var sb strings.Builder

	title := model
	if query != "" {
		title = fmt.Sprintf("%s: %q", model, query)
	}
	fmt.Fprintf(&sb, "## %s\n\n", title)

	if out.Total == 0 {
		sb.WriteString("No matching records.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d matches, page %d of %d\n\n", out.Total, out.Page, out.LastPage)

	for i, r := range out.Records {
		fmt.Fprintf(&sb, "%d. **%s**", (out.Page-1)*out.PerPage+i+1, r.ID)
		if r.Trashed {
			sb.WriteString(" (trashed)")
		}
		for _, k := range sortedKeys(r.Fields) {
			fmt.Fprintf(&sb, " %s=%v", k, r.Fields[k])
		}
		sb.WriteByte('\n')
	}

	if len(out.Facets) > 0 {
		sb.WriteByte('\n')
		sb.WriteString(FormatFacets(out.Facets))
	}
	return sb.String()
}

// FormatFacets renders facet counts as markdown, values by descending count.
func FormatFacets(facets map[string]map[string]int) string {
	var sb strings.Builder
	for _, field := range sortedKeys(facets) {
		fmt.Fprintf(&sb, "### %s\n", field)
		counts := facets[field]
		values := sortedKeys(counts)
		slices.SortStableFunc(values, func(a, b string) int {
			return counts[b] - counts[a]
		})
		for _, v := range values {
			fmt.Fprintf(&sb, "- %s: %d\n", v, counts[v])
		}
	}
	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// toSearchRecordsOutput converts a result page to the tool output.
func toSearchRecordsOutput(res *search.Result) SearchRecordsOutput {
	page := res.Page
	out := SearchRecordsOutput{
		Total:    page.Total,
		Page:     page.CurrentPage,
		LastPage: page.LastPage(),
		PerPage:  page.PerPage,
		Records:  make([]RecordOutput, 0, len(page.Items)),
		Facets:   res.Facets,
	}
	for _, r := range page.Items {
		out.Records = append(out.Records, toRecordOutput(r))
	}
	return out
}

func toRecordOutput(r store.Record) RecordOutput {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return RecordOutput{ID: r.ID, Fields: fields, Trashed: r.Trashed()}
}

// filterGroups converts a field-to-values map into filter groups ordered by
// field name.
func filterGroups(filters map[string][]string) []scout.FilterGroup {
	groups := make([]scout.FilterGroup, 0, len(filters))
	for _, field := range sortedKeys(filters) {
		values := make([]any, len(filters[field]))
		for i, v := range filters[field] {
			values[i] = v
		}
		groups = append(groups, scout.FilterGroup{Field: field, Values: values})
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
