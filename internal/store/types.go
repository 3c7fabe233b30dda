package store

import (
	"context"
	"time"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Record is one searchable row in the system of record.
type Record struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

// Trashed reports whether the record is soft deleted.
func (r *Record) Trashed() bool {
	return r.DeletedAt != nil
}

// Document returns the record as an index document: its fields plus id
// and the soft-delete marker.
func (r *Record) Document() scout.Document {
	doc := make(scout.Document, len(r.Fields)+2)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc["id"] = r.ID
	deleted := 0
	if r.Trashed() {
		deleted = 1
	}
	doc[scout.SoftDeletedField] = deleted
	return doc
}

// RecordType is a configured searchable model.
type RecordType struct {
	// Name identifies the type in the store and the engine registry.
	Name string

	// Index is the default index (Solr core or Bleve index) for the type.
	// Empty means Name.
	Index string

	// PageSize is the default page size. Zero means DefaultPageSize.
	PageSize int

	// SoftDeleting makes searches exclude trashed records by default.
	SoftDeleting bool
}

// DefaultPageSize is used when a record type does not set one.
const DefaultPageSize = 15

// SearchableAs implements scout.Model.
func (t RecordType) SearchableAs() string {
	if t.Index != "" {
		return t.Index
	}
	return t.Name
}

// PerPage implements scout.Model.
func (t RecordType) PerPage() int {
	if t.PageSize > 0 {
		return t.PageSize
	}
	return DefaultPageSize
}

// SoftDeletes implements scout.SoftDeletable.
func (t RecordType) SoftDeletes() bool {
	return t.SoftDeleting
}

// Store persists records.
type Store interface {
	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, records ...*Record) error

	// SoftDelete marks a record deleted. Restore clears the mark.
	SoftDelete(ctx context.Context, typ, id string) error
	Restore(ctx context.Context, typ, id string) error

	// FindByIDs returns the records of typ among ids that satisfy rq.
	FindByIDs(ctx context.Context, typ string, ids []string, rq *scout.RecordQuery) (map[string]Record, error)

	// Count returns the number of records of typ, trashed included.
	Count(ctx context.Context, typ string) (int, error)

	Close() error
}
