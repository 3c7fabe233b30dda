package mcp

// Tool names.
const (
	ToolSearchRecords = "search_records"
	ToolFacetCounts   = "facet_counts"
	ToolRecordKeys    = "record_keys"
	ToolListModels    = "list_models"
)

// SearchRecordsInput defines the input schema for the search_records tool.
type SearchRecordsInput struct {
	Model   string              `json:"model" jsonschema:"the model to search, see list_models"`
	Query   string              `json:"query,omitempty" jsonschema:"free text query, empty matches everything"`
	Where   map[string]any      `json:"where,omitempty" jsonschema:"exact field matches, all must hold"`
	Filters map[string][]string `json:"filters,omitempty" jsonschema:"field to accepted values, any value of a field matches"`
	Facets  []string            `json:"facets,omitempty" jsonschema:"fields to return value counts for"`
	Sort    string              `json:"sort,omitempty" jsonschema:"sort as 'field asc' or 'field desc'"`
	Page    int                 `json:"page,omitempty" jsonschema:"page number, default 1"`
	PerPage int                 `json:"per_page,omitempty" jsonschema:"results per page, default is the model page size, max 100"`
	Trashed string              `json:"trashed,omitempty" jsonschema:"soft deleted records: empty to exclude, 'with' or 'only'"`
}

// SearchRecordsOutput defines the output schema for the search_records tool.
type SearchRecordsOutput struct {
	Total    int                       `json:"total" jsonschema:"matches across all pages"`
	Page     int                       `json:"page" jsonschema:"current page"`
	LastPage int                       `json:"last_page" jsonschema:"last page number"`
	PerPage  int                       `json:"per_page" jsonschema:"page size"`
	Records  []RecordOutput            `json:"records" jsonschema:"the records on this page in engine order"`
	Facets   map[string]map[string]int `json:"facets,omitempty" jsonschema:"value counts per requested facet field"`
}

// RecordOutput is one hydrated record.
type RecordOutput struct {
	ID      string         `json:"id" jsonschema:"record id"`
	Fields  map[string]any `json:"fields" jsonschema:"record fields"`
	Trashed bool           `json:"trashed,omitempty" jsonschema:"true if the record is soft deleted"`
}

// FacetCountsInput defines the input schema for the facet_counts tool.
type FacetCountsInput struct {
	Model   string              `json:"model" jsonschema:"the model to search"`
	Query   string              `json:"query,omitempty" jsonschema:"free text query"`
	Where   map[string]any      `json:"where,omitempty" jsonschema:"exact field matches"`
	Filters map[string][]string `json:"filters,omitempty" jsonschema:"field to accepted values"`
	Facets  []string            `json:"facets" jsonschema:"fields to count values for"`
}

// FacetCountsOutput defines the output schema for the facet_counts tool.
type FacetCountsOutput struct {
	Facets map[string]map[string]int `json:"facets" jsonschema:"value counts per facet field"`
}

// RecordKeysInput defines the input schema for the record_keys tool.
type RecordKeysInput struct {
	Model   string              `json:"model" jsonschema:"the model to search"`
	Query   string              `json:"query,omitempty" jsonschema:"free text query"`
	Where   map[string]any      `json:"where,omitempty" jsonschema:"exact field matches"`
	Filters map[string][]string `json:"filters,omitempty" jsonschema:"field to accepted values"`
	Limit   int                 `json:"limit,omitempty" jsonschema:"maximum number of ids, default 100"`
}

// RecordKeysOutput defines the output schema for the record_keys tool.
type RecordKeysOutput struct {
	Keys []string `json:"keys" jsonschema:"matching record ids in engine order"`
}

// ListModelsInput defines the input schema for the list_models tool (no parameters).
type ListModelsInput struct{}

// ListModelsOutput defines the output schema for the list_models tool.
type ListModelsOutput struct {
	Models []ModelOutput `json:"models" jsonschema:"configured models"`
}

// ModelOutput describes one configured model.
type ModelOutput struct {
	Name   string `json:"name"`
	Engine string `json:"engine" jsonschema:"solr or bleve"`
}
