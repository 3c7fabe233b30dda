package scout

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SoftDeletedField is the index field engines use to store soft-delete state
// (0 for live documents, 1 for deleted ones).
const SoftDeletedField = "__soft_deleted"

// SoftDeleteMode selects which documents a query sees with respect to soft deletes.
type SoftDeleteMode int

const (
	// IncludeAll applies no soft-delete filtering.
	IncludeAll SoftDeleteMode = iota
	// ExcludeDeleted hides soft-deleted documents.
	ExcludeDeleted
	// OnlyDeleted restricts the search to soft-deleted documents.
	OnlyDeleted
)

// String returns the mode name used in logs and config.
func (m SoftDeleteMode) String() string {
	switch m {
	case ExcludeDeleted:
		return "exclude_deleted"
	case OnlyDeleted:
		return "only_deleted"
	default:
		return "include_all"
	}
}

// Value returns the __soft_deleted value to filter on, and false when no
// filter applies.
func (m SoftDeleteMode) Value() (int, bool) {
	switch m {
	case ExcludeDeleted:
		return 0, true
	case OnlyDeleted:
		return 1, true
	default:
		return 0, false
	}
}

// Direction is a normalized sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// FilterGroup is one AND-level filter clause. Its values are OR-ed.
type FilterGroup struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

// Order is one generic (column, direction) sort pair.
type Order struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// BeforeExecuteFunc receives the engine-native request before dispatch.
// Each engine documents the concrete type it passes.
type BeforeExecuteFunc func(native any)

// Query is the request a Builder accumulates.
type Query struct {
	// Text is the free-text query. Empty means match all.
	Text string

	// Index overrides the model's default index when set.
	Index string

	// Wheres are exact-match constraints, last write wins per field.
	Wheres map[string]any

	// SoftDelete selects live, deleted or all documents.
	SoftDelete SoftDeleteMode

	// Filters are appended in call order and never merged.
	Filters []FilterGroup

	// Facets are field names to count, duplicates preserved.
	Facets []string

	// Limit caps the result count when non-nil. Engines define how
	// zero or negative values behave.
	Limit *int

	// Orders are generic sort pairs applied in call order.
	Orders []Order

	// Sort is the engine-native "<column> <direction>" expression.
	Sort string

	// BeforeExecute is invoked with the native request before dispatch.
	BeforeExecute BeforeExecuteFunc

	// QueryCallback constrains the record store query during hydration.
	QueryCallback func(*RecordQuery)
}

// Clone returns a deep copy of the query. Callbacks are shared.
func (q *Query) Clone() *Query {
	c := *q
	c.Wheres = maps.Clone(q.Wheres)
	c.Filters = make([]FilterGroup, len(q.Filters))
	for i, f := range q.Filters {
		c.Filters[i] = FilterGroup{Field: f.Field, Values: slices.Clone(f.Values)}
	}
	c.Facets = slices.Clone(q.Facets)
	c.Orders = slices.Clone(q.Orders)
	if q.Limit != nil {
		limit := *q.Limit
		c.Limit = &limit
	}
	return &c
}

// WhereFields returns the where field names in sorted order so engines
// build deterministic requests.
func (q *Query) WhereFields() []string {
	return slices.Sorted(maps.Keys(q.Wheres))
}

// fingerprintView is the cacheable part of a Query. encoding/json sorts
// map keys, which keeps the encoding stable.
type fingerprintView struct {
	Text       string         `json:"text"`
	Index      string         `json:"index"`
	Wheres     map[string]any `json:"wheres"`
	SoftDelete SoftDeleteMode `json:"soft_delete"`
	Filters    []FilterGroup  `json:"filters"`
	Facets     []string       `json:"facets"`
	Limit      *int           `json:"limit"`
	Orders     []Order        `json:"orders"`
	Sort       string         `json:"sort"`
}

// Fingerprint returns a stable hash of everything that affects the engine
// response. Callbacks are not part of it, so callers that set BeforeExecute
// should not cache by fingerprint.
func (q *Query) Fingerprint() string {
	data, err := json.Marshal(fingerprintView{
		Text:       q.Text,
		Index:      q.Index,
		Wheres:     q.Wheres,
		SoftDelete: q.SoftDelete,
		Filters:    q.Filters,
		Facets:     q.Facets,
		Limit:      q.Limit,
		Orders:     q.Orders,
		Sort:       q.Sort,
	})
	if err != nil {
		// Unencodable where values; fall back to a hash that never collides
		// with a valid encoding.
		data = []byte("unencodable:" + err.Error() + ":" + q.Text)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// ClauseOp is a record store comparison.
type ClauseOp string

const (
	OpEq      ClauseOp = "="
	OpIn      ClauseOp = "in"
	OpNull    ClauseOp = "null"
	OpNotNull ClauseOp = "not_null"
)

// Clause is one constraint added by a query callback.
type Clause struct {
	Column string
	Op     ClauseOp
	Values []any
}

// RecordQuery collects constraints applied by a Hydrator when it loads
// records for search hits.
type RecordQuery struct {
	Clauses []Clause
}

// Where adds an equality constraint.
func (rq *RecordQuery) Where(column string, value any) *RecordQuery {
	rq.Clauses = append(rq.Clauses, Clause{Column: column, Op: OpEq, Values: []any{value}})
	return rq
}

// WhereIn adds a membership constraint.
func (rq *RecordQuery) WhereIn(column string, values ...any) *RecordQuery {
	rq.Clauses = append(rq.Clauses, Clause{Column: column, Op: OpIn, Values: values})
	return rq
}

// WhereNull requires column to be NULL.
func (rq *RecordQuery) WhereNull(column string) *RecordQuery {
	rq.Clauses = append(rq.Clauses, Clause{Column: column, Op: OpNull})
	return rq
}

// WhereNotNull requires column to be set.
func (rq *RecordQuery) WhereNotNull(column string) *RecordQuery {
	rq.Clauses = append(rq.Clauses, Clause{Column: column, Op: OpNotNull})
	return rq
}
