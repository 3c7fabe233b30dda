package scout

import (
	"context"
	"fmt"
	"strings"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// Hydrator loads records from the system of record.
type Hydrator[T any] interface {
	// FindByIDs returns the records for ids keyed by id. Ids without a
	// record are absent from the map. rq may carry extra constraints.
	FindByIDs(ctx context.Context, ids []string, rq *RecordQuery) (map[string]T, error)
}

// HydratorFunc adapts a function to Hydrator.
type HydratorFunc[T any] func(ctx context.Context, ids []string, rq *RecordQuery) (map[string]T, error)

// FindByIDs calls f.
func (f HydratorFunc[T]) FindByIDs(ctx context.Context, ids []string, rq *RecordQuery) (map[string]T, error) {
	return f(ctx, ids, rq)
}

// Mapper turns engine hits into records in engine order.
//
// A lenient Mapper drops hits whose record is gone (a stale index) and
// leaves the engine total untouched. A strict Mapper fails with
// ErrHydrationFailure listing the missing ids.
type Mapper[T any] struct {
	Hydrator Hydrator[T]
	Strict   bool
}

// NewMapper creates a lenient Mapper.
func NewMapper[T any](h Hydrator[T]) *Mapper[T] {
	return &Mapper[T]{Hydrator: h}
}

// Map hydrates raw.IDs, applying q.QueryCallback to the record query.
func (m *Mapper[T]) Map(ctx context.Context, q *Query, raw *RawResponse) ([]T, error) {
	if raw == nil || len(raw.IDs) == 0 {
		return []T{}, nil
	}

	rq := &RecordQuery{}
	if q != nil && q.QueryCallback != nil {
		q.QueryCallback(rq)
	}

	found, err := m.Hydrator.FindByIDs(ctx, raw.IDs, rq)
	if err != nil {
		return nil, fmt.Errorf("hydrate %d ids: %w", len(raw.IDs), err)
	}

	items := make([]T, 0, len(raw.IDs))
	var missing []string
	for _, id := range raw.IDs {
		record, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, record)
	}

	if m.Strict && len(missing) > 0 {
		return nil, scouterrors.New(scouterrors.ErrCodeHydrationFailure,
			fmt.Sprintf("%d of %d search hits have no record", len(missing), len(raw.IDs)), nil).
			WithDetail("missing_ids", strings.Join(missing, ","))
	}

	return items, nil
}
