package scout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Facets maps a facet field to its value counts over the whole result set.
type Facets map[string]map[string]int

// facetEnvelope is the part of a Solr response ParseFacets reads.
type facetEnvelope struct {
	FacetCounts *struct {
		FacetFields map[string][]json.RawMessage `json:"facet_fields"`
	} `json:"facet_counts"`
}

// ParseFacets decodes facet_counts.facet_fields from a Solr JSON body.
//
// Each field holds a flat [value, count, value, count, ...] array. String
// values are unquoted; other scalars keep their JSON text (so 42 becomes
// "42"). A body without facet_counts or facet_fields yields empty Facets.
// Fields with an empty array are omitted.
func ParseFacets(body []byte) (Facets, error) {
	var env facetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed("facet payload is not valid JSON", err)
	}

	facets := Facets{}
	if env.FacetCounts == nil {
		return facets, nil
	}

	for field, pairs := range env.FacetCounts.FacetFields {
		if len(pairs)%2 != 0 {
			return nil, malformed(fmt.Sprintf("facet field %q has an odd number of entries", field), nil)
		}
		if len(pairs) == 0 {
			continue
		}

		counts := make(map[string]int, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			value, err := facetValue(pairs[i])
			if err != nil {
				return nil, malformed(fmt.Sprintf("facet field %q has an invalid value", field), err)
			}
			count, err := strconv.Atoi(string(bytes.TrimSpace(pairs[i+1])))
			if err != nil {
				return nil, malformed(fmt.Sprintf("facet field %q has a non-numeric count", field), err)
			}
			counts[value] = count
		}
		facets[field] = counts
	}

	return facets, nil
}

func facetValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value must be a scalar, got %s", raw)
	default:
		return string(raw), nil
	}
}
