package solr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Response is the Solr JSON response envelope (wt=json).
// The embedded engine writes the same shape.
type Response struct {
	ResponseHeader Header       `json:"responseHeader"`
	Response       *Result      `json:"response,omitempty"`
	FacetCounts    *FacetCounts `json:"facet_counts,omitempty"`
	Error          *ErrorBody   `json:"error,omitempty"`
}

// Header is the responseHeader block.
type Header struct {
	Status int               `json:"status"`
	QTime  int               `json:"QTime"`
	Params map[string]string `json:"params,omitempty"`
}

// Result is the response block with the hits.
type Result struct {
	NumFound int              `json:"numFound"`
	Start    int              `json:"start"`
	Docs     []scout.Document `json:"docs"`
}

// FacetCounts is the facet_counts block. Each facet field is a flat
// [value, count, value, count, ...] list.
type FacetCounts struct {
	FacetQueries map[string]int   `json:"facet_queries"`
	FacetFields  map[string][]any `json:"facet_fields"`
}

// ErrorBody is the error block Solr returns on failure.
type ErrorBody struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

// Decode parses a Solr JSON body. Numbers in documents stay json.Number so
// long ids keep every digit.
func Decode(body []byte) (*Response, error) {
	var resp Response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToRaw converts a decoded response into a scout.RawResponse, taking hit
// ids from idField.
func ToRaw(body []byte, resp *Response, idField string) *scout.RawResponse {
	raw := &scout.RawResponse{Body: body, IDs: []string{}, Docs: []scout.Document{}}
	if resp.Response == nil {
		return raw
	}
	raw.Total = resp.Response.NumFound
	for _, doc := range resp.Response.Docs {
		raw.Docs = append(raw.Docs, doc)
		if id := DocID(doc, idField); id != "" {
			raw.IDs = append(raw.IDs, id)
		}
	}
	return raw
}

// DocID returns the id of doc as text. Numeric ids keep their integer form.
func DocID(doc scout.Document, idField string) string {
	switch v := doc[idField].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case []any:
		// Multi-valued id fields are not expected; use the first value.
		if len(v) > 0 {
			return DocID(scout.Document{idField: v[0]}, idField)
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}
