package search

import (
	"fmt"
	"strings"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// The helpers below parse the compact text forms shared by the HTTP query
// string and the CLI flags:
//
//	field:value       where clause or hydration constraint
//	field:a,b         filter group
//	field             facet, comma separated lists allowed
//	field[:dir]       order, ascending by default

// ParsePairs parses "field:value" pairs. key names the parameter in errors.
func ParsePairs(key string, values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(values))
	for _, v := range values {
		field, value, ok := strings.Cut(v, ":")
		if !ok || field == "" {
			return nil, InvalidParam(key, v)
		}
		out[field] = value
	}
	return out, nil
}

// ParseFilters parses "field:a,b" filter groups.
func ParseFilters(values []string) ([]scout.FilterGroup, error) {
	var groups []scout.FilterGroup
	for _, v := range values {
		field, list, ok := strings.Cut(v, ":")
		if !ok || field == "" {
			return nil, scouterrors.New(scouterrors.ErrCodeInvalidFilter,
				fmt.Sprintf("invalid filter %q", v), nil).
				WithSuggestion("use field:value1,value2")
		}
		group := scout.FilterGroup{Field: field}
		for _, value := range strings.Split(list, ",") {
			group.Values = append(group.Values, value)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// SplitFacets flattens repeated and comma separated facet fields.
func SplitFacets(values []string) []string {
	var fields []string
	for _, v := range values {
		for _, field := range strings.Split(v, ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

// ParseOrders parses "field[:dir]" orders.
func ParseOrders(values []string) ([]scout.Order, error) {
	var orders []scout.Order
	for _, v := range values {
		column, dir, _ := strings.Cut(v, ":")
		if column == "" {
			return nil, InvalidParam("order", v)
		}
		direction := scout.Asc
		if dir != "" {
			direction = scout.NormalizeDirection(dir)
		}
		orders = append(orders, scout.Order{Column: column, Direction: direction})
	}
	return orders, nil
}

// InvalidParam reports a malformed request parameter.
func InvalidParam(key, value string) error {
	return scouterrors.ValidationError(fmt.Sprintf("invalid %s parameter %q", key, value), nil)
}
