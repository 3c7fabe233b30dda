// Package search wires configured models to their engines and runs
// searches for the CLI, the HTTP API and the MCP server.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/solrscout/internal/cache"
	"github.com/Aman-CERP/solrscout/internal/config"
	"github.com/Aman-CERP/solrscout/internal/embedded"
	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/internal/solr"
	"github.com/Aman-CERP/solrscout/internal/store"
	"github.com/Aman-CERP/solrscout/internal/telemetry"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Trashed modes accepted by Request.Trashed.
const (
	TrashedExclude = ""
	TrashedWith    = "with"
	TrashedOnly    = "only"
)

// Request describes one search in transport-neutral form.
type Request struct {
	Model string `json:"model"`
	Query string `json:"query"`

	// Index searches a custom index instead of the model's default.
	Index string `json:"index,omitempty"`

	Wheres  map[string]any      `json:"wheres,omitempty"`
	Filters []scout.FilterGroup `json:"filters,omitempty"`
	Facets  []string            `json:"facets,omitempty"`

	// Sort is a native "field [asc|desc]" sort that precedes Orders.
	Sort   string        `json:"sort,omitempty"`
	Orders []scout.Order `json:"orders,omitempty"`

	// Constraints narrow hydration to records whose fields match.
	Constraints map[string]any `json:"constraints,omitempty"`

	// Page and PerPage default to 1 and the model's page size.
	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`

	// Limit caps Keys results. Zero means the engine default.
	Limit int `json:"limit,omitempty"`

	// Trashed is "", "with" or "only".
	Trashed string `json:"trashed,omitempty"`

	// Raw returns index documents instead of hydrated records.
	Raw bool `json:"raw,omitempty"`

	// Path is the base URL for paginator links.
	Path string `json:"-"`
}

// Result is a page of hits with the facet counts of the same query.
type Result struct {
	Page      *scout.Paginator[store.Record]   `json:"page,omitempty"`
	Documents *scout.Paginator[scout.Document] `json:"documents,omitempty"`
	Facets    scout.Facets                     `json:"facets,omitempty"`
}

// Stats summarizes the service.
type Stats struct {
	Models  []string                        `json:"models"`
	Engines map[string]string               `json:"engines"`
	Store   string                          `json:"store"`
	Cache   *cache.Stats                    `json:"cache,omitempty"`
	Queries *telemetry.QueryMetricsSnapshot `json:"queries,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithStore uses an already opened store instead of the configured one.
// The service does not close it.
func WithStore(s *store.SQLStore) Option {
	return func(svc *Service) {
		svc.store = s
		svc.ownsStore = false
	}
}

// WithCatalog uses an existing embedded catalog for bleve models.
// The service does not close it.
func WithCatalog(c *embedded.Catalog) Option {
	return func(svc *Service) {
		svc.catalog = c
		svc.ownsCatalog = false
	}
}

// WithLogger sets the logger for the service and its builders.
func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

// WithEngine registers engine for a model instead of building one from
// config. The engine is still wrapped with the cache and telemetry.
func WithEngine(model string, engine scout.Engine[store.Record]) Option {
	return func(svc *Service) {
		svc.overrides[model] = engine
	}
}

// WithSolrTransport sets the HTTP transport of the Solr client.
func WithSolrTransport(rt http.RoundTripper) Option {
	return func(svc *Service) {
		svc.transport = rt
	}
}

// Service resolves models to engines and runs searches against them.
// Safe for concurrent use.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *scout.Registry[store.Record]
	models   map[string]store.RecordType
	backends map[string]string

	store       *store.SQLStore
	ownsStore   bool
	catalog     *embedded.Catalog
	ownsCatalog bool
	solr        *solr.Client
	transport   http.RoundTripper
	cache       cache.Backend
	metrics     *telemetry.QueryMetrics
	overrides   map[string]scout.Engine[store.Record]
}

// New builds a service from cfg: it opens the store, the cache backend and
// the telemetry collector, then registers one engine per configured model.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (svc *Service, err error) {
	if cfg == nil {
		return nil, scouterrors.ConfigError("nil config", nil)
	}

	svc = &Service{
		cfg:         cfg,
		logger:      slog.Default(),
		registry:    scout.NewRegistry[store.Record](nil),
		models:      make(map[string]store.RecordType),
		backends:    make(map[string]string),
		ownsStore:   true,
		ownsCatalog: true,
		overrides:   make(map[string]scout.Engine[store.Record]),
	}
	for _, opt := range opts {
		opt(svc)
	}

	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	if svc.store == nil {
		if svc.store, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN); err != nil {
			return nil, err
		}
	}
	if err = svc.store.Migrate(ctx); err != nil {
		return nil, err
	}

	if err = svc.initMetrics(); err != nil {
		return nil, err
	}
	svc.initCache()

	for _, name := range cfg.ModelNames() {
		if err = svc.register(name); err != nil {
			return nil, err
		}
	}

	svc.logger.Info("search_service_ready",
		slog.Int("models", len(svc.models)),
		slog.String("store", svc.store.Driver()),
		slog.String("cache", cfg.Cache.Backend),
		slog.Bool("telemetry", svc.metrics != nil))
	return svc, nil
}

func (s *Service) initMetrics() error {
	if s.cfg.Telemetry.Disabled {
		return nil
	}
	ms, err := telemetry.NewSQLMetricsStore(s.store.DB())
	if err != nil {
		return scouterrors.StoreError("failed to create telemetry tables", err)
	}
	mc := telemetry.DefaultQueryMetricsConfig()
	mc.FlushInterval = s.cfg.TelemetryFlushInterval()
	s.metrics = telemetry.NewQueryMetricsWithConfig(ms, mc)
	return nil
}

func (s *Service) initCache() {
	switch s.cfg.Cache.Backend {
	case config.CacheMemory:
		s.cache = cache.NewMemoryBackend(s.cfg.Cache.Size, s.cfg.CacheTTL())
	case config.CacheRedis:
		r := s.cfg.Cache.Redis
		s.cache = cache.NewRedisBackend(cache.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      s.cfg.CacheTTL(),
		})
	}
}

func (s *Service) register(name string) error {
	mc, _ := s.cfg.Model(name)
	typ := store.RecordType{
		Name:         name,
		Index:        mc.Index,
		PageSize:     mc.PerPage,
		SoftDeleting: mc.SoftDeletes,
	}
	for other, t := range s.models {
		if t.SearchableAs() == typ.SearchableAs() {
			return scouterrors.New(scouterrors.ErrCodeConfigInvalid,
				fmt.Sprintf("models %q and %q share index %q", other, name, typ.SearchableAs()), nil).
				WithSuggestion("give each model its own index")
		}
	}

	backend := mc.Engine
	if backend == "" {
		backend = s.cfg.Engine.Backend
	}

	engine, err := s.buildEngine(name, backend, typ)
	if err != nil {
		return err
	}
	if s.cache != nil {
		engine = cache.Wrap(engine, s.cache, typ.SearchableAs())
	}
	engine = telemetry.Instrument(engine, s.metrics, name)

	s.registry.Register(typ.SearchableAs(), engine)
	s.models[name] = typ
	s.backends[name] = backend
	s.logger.Debug("model_registered",
		slog.String("model", name),
		slog.String("index", typ.SearchableAs()),
		slog.String("engine", backend))
	return nil
}

func (s *Service) buildEngine(name, backend string, typ store.RecordType) (scout.Engine[store.Record], error) {
	if e, ok := s.overrides[name]; ok {
		return e, nil
	}

	mapper := scout.NewMapper(store.Hydrator(s.store, name))
	mapper.Strict = s.cfg.Hydration.Strict

	switch backend {
	case config.BackendSolr:
		client, err := s.solrClient()
		if err != nil {
			return nil, err
		}
		return solr.NewEngine(client, typ.SearchableAs(), mapper,
			solr.WithIDField(s.cfg.Engine.Solr.IDField),
			solr.WithDefaultRows(typ.PerPage())), nil
	case config.BackendBleve:
		if s.catalog == nil {
			s.catalog = embedded.NewCatalog(s.cfg.Engine.Bleve.Path)
		}
		return embedded.NewEngine(s.catalog, typ.SearchableAs(), mapper), nil
	default:
		return nil, scouterrors.New(scouterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("model %q uses unknown engine %q", name, backend), nil).
			WithSuggestion("use engine: solr or bleve")
	}
}

func (s *Service) solrClient() (*solr.Client, error) {
	if s.solr != nil {
		return s.solr, nil
	}
	sc := s.cfg.Engine.Solr
	client, err := solr.NewClient(solr.ClientConfig{
		URL:          sc.URL,
		Timeout:      s.cfg.SolrTimeout(),
		Retry:        scouterrors.RetryConfig{MaxRetries: sc.Retries},
		MaxFailures:  sc.MaxFailures,
		ResetTimeout: s.cfg.SolrResetTimeout(),
		PoolSize:     sc.PoolSize,
		Transport:    s.transport,
	})
	if err != nil {
		return nil, err
	}
	s.solr = client
	return client, nil
}

// Models returns the configured model names, sorted.
func (s *Service) Models() []string {
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Model returns the record type for name.
func (s *Service) Model(name string) (store.RecordType, error) {
	typ, ok := s.models[name]
	if !ok {
		return store.RecordType{}, scouterrors.New(scouterrors.ErrCodeUnknownModel,
			fmt.Sprintf("unknown model %q", name), nil).
			WithSuggestion("configured models: " + strings.Join(s.Models(), ", "))
	}
	return typ, nil
}

// Builder starts a search of model for text.
func (s *Service) Builder(model, text string, opts ...scout.Option) (*scout.Builder[store.Record], error) {
	typ, err := s.Model(model)
	if err != nil {
		return nil, err
	}
	opts = append([]scout.Option{scout.WithLogger(s.logger)}, opts...)
	return scout.New[store.Record](typ, s.registry, text, opts...), nil
}

// builder applies every clause of req.
func (s *Service) builder(req Request) (*scout.Builder[store.Record], error) {
	b, err := s.Builder(req.Model, req.Query,
		scout.WithRequestContext(scout.FixedRequest{Page: req.Page, Path: req.Path}))
	if err != nil {
		return nil, err
	}

	switch req.Trashed {
	case TrashedExclude:
	case TrashedWith:
		b.WithTrashed()
	case TrashedOnly:
		b.OnlyTrashed()
	default:
		return nil, scouterrors.ValidationError(fmt.Sprintf("invalid trashed mode %q", req.Trashed), nil).
			WithSuggestion(`use "with" or "only"`)
	}

	if req.Index != "" {
		b.Within(req.Index)
	}
	for _, field := range sortedKeys(req.Wheres) {
		b.Where(field, req.Wheres[field])
	}
	for _, f := range req.Filters {
		b.Filter(f.Field, f.Values...)
	}
	for _, field := range req.Facets {
		b.Facet(field)
	}
	if req.Sort != "" {
		column, direction, _ := strings.Cut(strings.TrimSpace(req.Sort), " ")
		if direction == "" {
			direction = string(scout.Asc)
		}
		b.SortBy(column, strings.TrimSpace(direction))
	}
	for _, o := range req.Orders {
		b.OrderBy(o.Column, string(o.Direction))
	}
	if req.Limit > 0 {
		b.Take(req.Limit)
	}
	if len(req.Constraints) > 0 {
		b.Query(func(rq *scout.RecordQuery) {
			for _, column := range sortedKeys(req.Constraints) {
				rq.Where(column, req.Constraints[column])
			}
		})
	}
	return b, nil
}

// Search returns one page of hits. When req names facets, their counts are
// fetched concurrently with the page.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	page, err := s.builder(req)
	if err != nil {
		return nil, err
	}

	var result Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if req.Raw {
			docs, err := page.PaginateRaw(gctx, req.PerPage, scout.DefaultPageName, req.Page)
			result.Documents = docs
			return err
		}
		records, err := page.Paginate(gctx, req.PerPage, scout.DefaultPageName, req.Page)
		result.Page = records
		return err
	})

	if len(req.Facets) > 0 {
		facets, err := s.builder(req)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			f, err := facets.Facets(gctx)
			result.Facets = f
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}

// Facets returns the facet counts of req.
func (s *Service) Facets(ctx context.Context, req Request) (scout.Facets, error) {
	if len(req.Facets) == 0 {
		return nil, scouterrors.ValidationError("no facet fields requested", nil).
			WithSuggestion("name at least one facet field")
	}
	b, err := s.builder(req)
	if err != nil {
		return nil, err
	}
	return b.Facets(ctx)
}

// Keys returns the ids matching req in engine order.
func (s *Service) Keys(ctx context.Context, req Request) ([]string, error) {
	b, err := s.builder(req)
	if err != nil {
		return nil, err
	}
	return b.Keys(ctx)
}

// Ping checks the Solr core (engine.solr.core, or the first solr model's
// index). It is a no-op when no model uses Solr.
func (s *Service) Ping(ctx context.Context) error {
	if s.solr == nil {
		return nil
	}
	core := s.cfg.Engine.Solr.Core
	if core == "" {
		for _, name := range s.Models() {
			if s.backends[name] == config.BackendSolr {
				core = s.models[name].SearchableAs()
				break
			}
		}
	}
	return s.solr.Ping(ctx, core)
}

// Stats reports models, cache counters and query telemetry.
func (s *Service) Stats() Stats {
	st := Stats{
		Models:  s.Models(),
		Engines: make(map[string]string, len(s.backends)),
		Store:   s.store.Driver(),
	}
	for name, backend := range s.backends {
		st.Engines[name] = backend
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		st.Cache = &cs
	}
	if s.metrics != nil {
		st.Queries = s.metrics.Snapshot()
	}
	return st
}

// Store returns the record store.
func (s *Service) Store() *store.SQLStore {
	return s.store
}

// Catalog returns the embedded catalog, or nil when no model uses bleve.
func (s *Service) Catalog() *embedded.Catalog {
	return s.catalog
}

// Metrics returns the telemetry collector, or nil when disabled.
func (s *Service) Metrics() *telemetry.QueryMetrics {
	return s.metrics
}

// Close flushes telemetry and releases everything the service opened.
func (s *Service) Close() error {
	var errs []error
	if s.metrics != nil {
		errs = append(errs, s.metrics.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.catalog != nil && s.ownsCatalog {
		errs = append(errs, s.catalog.Close())
	}
	if s.store != nil && s.ownsStore {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
