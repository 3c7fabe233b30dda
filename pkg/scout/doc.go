// Package scout builds search requests for Solr-style engines and reshapes
// their responses into paginated, faceted results.
//
// A [Builder] accumulates a [Query] through chained calls and hands it to an
// [Engine] resolved for the target [Model]:
//
//	b := scout.New[store.Record](products, registry, "running shoes").
//	    Where("brand", "acme").
//	    Filter("color", "red", "blue").
//	    Facet("color").
//	    SortBy("price", "asc")
//
//	page, err := b.Paginate(ctx, 20, "page", 2)
//	facets, err := b.Facets(ctx)
//
// # Components
//
//   - [Query]: the accumulated request (text, wheres, filter groups, facets,
//     orders, sort expression, soft-delete mode, hooks)
//   - [Engine]: executes a Query against a backend and hydrates hits
//   - [Mapper]: turns engine ids into records in engine order
//   - [ParseFacets]: decodes facet_counts.facet_fields into [Facets]
//   - [Paginator]: one page of items plus total and link metadata
//
// # Thread Safety
//
// A Builder is a single-flow accumulator and must not be shared between
// goroutines. Independent Builders share nothing.
package scout
