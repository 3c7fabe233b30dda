package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Aman-CERP/solrscout/internal/search"
)

// parseRequest reads a search request from the route and query string:
//
//	query=text            free text (alias q)
//	where=field:value     exact match, repeatable
//	filter=field:a,b      any of the values, repeatable
//	facet=field           facet field, repeatable or comma separated
//	sort=field [dir]      native sort
//	order=field[:dir]     generic order, repeatable, ascending by default
//	constraint=field:v    hydration constraint, repeatable
//	page, per_page, limit, trashed, index, raw
func parseRequest(c *fiber.Ctx) (search.Request, error) {
	req := search.Request{
		Model:   c.Params("model"),
		Query:   c.Query("query", c.Query("q")),
		Index:   c.Query("index"),
		Sort:    c.Query("sort"),
		Trashed: c.Query("trashed"),
		Path:    c.BaseURL() + c.Path(),
		Facets:  search.SplitFacets(multi(c, "facet")),
	}

	var err error
	if req.Page, err = intParam(c, "page"); err != nil {
		return req, err
	}
	if req.PerPage, err = intParam(c, "per_page"); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(c, "limit"); err != nil {
		return req, err
	}
	if raw := c.Query("raw"); raw != "" {
		if req.Raw, err = strconv.ParseBool(raw); err != nil {
			return req, search.InvalidParam("raw", raw)
		}
	}

	if req.Wheres, err = search.ParsePairs("where", multi(c, "where")); err != nil {
		return req, err
	}
	if req.Constraints, err = search.ParsePairs("constraint", multi(c, "constraint")); err != nil {
		return req, err
	}
	if req.Filters, err = search.ParseFilters(multi(c, "filter")); err != nil {
		return req, err
	}
	if req.Orders, err = search.ParseOrders(multi(c, "order")); err != nil {
		return req, err
	}
	return req, nil
}

// multi returns every value of a repeated query parameter.
func multi(c *fiber.Ctx, key string) []string {
	raw := c.Context().QueryArgs().PeekMulti(key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, string(v))
	}
	return out
}

func intParam(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, search.InvalidParam(key, raw)
	}
	return n, nil
}
