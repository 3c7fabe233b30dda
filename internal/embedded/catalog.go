package embedded

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// TextField is the catch-all field free text is matched against. It holds
// every string value of a document, analyzed with the standard analyzer.
const TextField = "_text"

// Catalog owns the Bleve indexes an embedded engine searches, one per
// index name. Indexes open lazily. Safe for concurrent use.
type Catalog struct {
	dir string

	mu      sync.Mutex
	indexes map[string]bleve.Index
	closed  bool
}

// NewCatalog creates a catalog storing indexes under dir.
// An empty dir keeps every index in memory.
func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir:     dir,
		indexes: make(map[string]bleve.Index),
	}
}

// Dir returns the catalog directory, empty for in-memory catalogs.
func (c *Catalog) Dir() string {
	return c.dir
}

// Index returns the named index, opening or creating it.
func (c *Catalog) Index(name string) (bleve.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("catalog is closed")
	}
	if idx, ok := c.indexes[name]; ok {
		return idx, nil
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid index name %q", name)
	}

	idx, err := c.open(name)
	if err != nil {
		return nil, err
	}
	c.indexes[name] = idx
	return idx, nil
}

func (c *Catalog) open(name string) (bleve.Index, error) {
	m, err := newIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	if c.dir == "" {
		return bleve.NewMemOnly(m)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", c.dir, err)
	}
	path := filepath.Join(c.dir, name+".bleve")

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		slog.Info("embedded_index_created", slog.String("index", name), slog.String("path", path))
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index %s: %w", name, err)
	}
	return idx, nil
}

// newIndexMapping maps every dynamic field with the keyword analyzer, so
// exact-match filters and facets see whole values, and adds TextField for
// free-text search.
func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = keyword.Name
	m.DefaultField = TextField

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	text.IncludeInAll = false
	m.DefaultMapping.AddFieldMappingsAt(TextField, text)

	return m, nil
}

// Put indexes docs into the named index. Every doc needs an "id".
func (c *Catalog) Put(ctx context.Context, index string, docs ...scout.Document) error {
	if len(docs) == 0 {
		return nil
	}
	idx, err := c.Index(index)
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := fmt.Sprint(doc["id"])
		if doc["id"] == nil || id == "" {
			return fmt.Errorf("document without id in index %s", index)
		}
		if err := batch.Index(id, withText(doc)); err != nil {
			return fmt.Errorf("failed to index document %s: %w", id, err)
		}
	}

	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Delete removes ids from the named index.
func (c *Catalog) Delete(ctx context.Context, index string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	idx, err := c.Index(index)
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return idx.Batch(batch)
}

// Count returns the number of documents in the named index.
func (c *Catalog) Count(index string) (uint64, error) {
	idx, err := c.Index(index)
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// Close closes every open index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	for name, idx := range c.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close index %s: %w", name, err)
		}
	}
	c.indexes = nil
	return firstErr
}

// withText copies doc and fills TextField from its string values.
func withText(doc scout.Document) map[string]any {
	out := make(map[string]any, len(doc)+1)
	keys := make([]string, 0, len(doc))
	for k, v := range doc {
		out[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if k == "id" || k == scout.SoftDeletedField {
			continue
		}
		switch v := doc[k].(type) {
		case string:
			parts = append(parts, v)
		case []string:
			parts = append(parts, v...)
		case []any:
			for _, e := range v {
				if s, ok := e.(string); ok {
					parts = append(parts, s)
				}
			}
		}
	}
	out[TextField] = strings.Join(parts, " ")
	return out
}
