package store

import (
	"context"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Hydrator adapts a Store to scout.Hydrator for one record type.
func Hydrator(s Store, typ string) scout.Hydrator[Record] {
	return scout.HydratorFunc[Record](func(ctx context.Context, ids []string, rq *scout.RecordQuery) (map[string]Record, error) {
		return s.FindByIDs(ctx, typ, ids, rq)
	})
}
