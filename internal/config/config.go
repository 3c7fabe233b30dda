package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// Engine backends.
const (
	BackendSolr  = "solr"
	BackendBleve = "bleve"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// ProjectFile is the per-project configuration file name.
const ProjectFile = ".solrscout.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SOLRSCOUT_"

// Config is the complete solrscout configuration.
type Config struct {
	Version   int                    `yaml:"version" json:"version"`
	Engine    EngineConfig           `yaml:"engine" json:"engine"`
	Store     StoreConfig            `yaml:"store" json:"store"`
	Models    map[string]ModelConfig `yaml:"models" json:"models"`
	Hydration HydrationConfig        `yaml:"hydration" json:"hydration"`
	Cache     CacheConfig            `yaml:"cache" json:"cache"`
	Telemetry TelemetryConfig        `yaml:"telemetry" json:"telemetry"`
	Server    ServerConfig           `yaml:"server" json:"server"`
}

// EngineConfig selects and configures the default search backend.
type EngineConfig struct {
	// Backend is "solr" or "bleve".
	Backend string      `yaml:"backend" json:"backend"`
	Solr    SolrConfig  `yaml:"solr" json:"solr"`
	Bleve   BleveConfig `yaml:"bleve" json:"bleve"`
}

// SolrConfig configures the Solr HTTP engine.
type SolrConfig struct {
	URL  string `yaml:"url" json:"url"`
	Core string `yaml:"core" json:"core"`

	// Timeout bounds each request, e.g. "5s".
	Timeout string `yaml:"timeout" json:"timeout"`

	IDField string `yaml:"id_field" json:"id_field"`

	// Retries is the number of retries for transient failures.
	// Use -1 to disable retries.
	Retries int `yaml:"retries" json:"retries"`

	MaxFailures  int    `yaml:"max_failures" json:"max_failures"`
	ResetTimeout string `yaml:"reset_timeout" json:"reset_timeout"`
	PoolSize     int    `yaml:"pool_size" json:"pool_size"`
}

// BleveConfig configures the embedded engine. An empty Path keeps indexes
// in memory.
type BleveConfig struct {
	Path string `yaml:"path" json:"path"`
}

// StoreConfig configures the record store used for hydration.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// ModelConfig describes one searchable record type.
type ModelConfig struct {
	// Index defaults to the model name.
	Index       string `yaml:"index,omitempty" json:"index,omitempty"`
	PerPage     int    `yaml:"per_page,omitempty" json:"per_page,omitempty"`
	SoftDeletes bool   `yaml:"soft_deletes,omitempty" json:"soft_deletes,omitempty"`

	// Engine overrides engine.backend for this model.
	Engine string `yaml:"engine,omitempty" json:"engine,omitempty"`
}

// HydrationConfig controls how engine hits become records.
type HydrationConfig struct {
	// Strict fails a query when a hit has no stored record.
	Strict bool `yaml:"strict" json:"strict"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Size    int         `yaml:"size" json:"size"`
	TTL     string      `yaml:"ttl" json:"ttl"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// TelemetryConfig configures local query telemetry.
type TelemetryConfig struct {
	Disabled      bool   `yaml:"disabled" json:"disabled"`
	FlushInterval string `yaml:"flush_interval" json:"flush_interval"`
}

// ServerConfig configures the HTTP API and logging.
type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogMaxSizeMB rotates a debug log file once it reaches this size.
	LogMaxSizeMB int `yaml:"log_max_size_mb" json:"log_max_size_mb"`
	// LogMaxFiles is how many rotated backups are kept per log file.
	LogMaxFiles int `yaml:"log_max_files" json:"log_max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			Backend: BackendSolr,
			Solr: SolrConfig{
				URL:          "http://localhost:8983/solr",
				Timeout:      "5s",
				IDField:      "id",
				Retries:      2,
				MaxFailures:  5,
				ResetTimeout: "30s",
				PoolSize:     16,
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    defaultStorePath(),
		},
		Models: map[string]ModelConfig{},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Size:    512,
			TTL:     "1m",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "solrscout:",
			},
		},
		Telemetry: TelemetryConfig{
			FlushInterval: "60s",
		},
		Server: ServerConfig{
			Addr:         ":8780",
			LogLevel:     "info",
			LogMaxSizeMB: 10,
			LogMaxFiles:  5,
		},
	}
}

// defaultStorePath returns ~/.solrscout/records.db.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".solrscout", "records.db")
	}
	return filepath.Join(home, ".solrscout", "records.db")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/solrscout/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/solrscout/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "solrscout", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "solrscout", "config.yaml")
	}
	return filepath.Join(home, ".config", "solrscout", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/solrscout/config.yaml)
//  3. Project config (.solrscout.yaml in dir)
//  4. .env file in dir
//  5. Environment variables (SOLRSCOUT_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, scouterrors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, scouterrors.ConfigError("failed to load project config", err)
	}

	env, err := newEnvironment(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, scouterrors.ConfigError("failed to read .env", err)
	}
	cfg.applyEnvOverrides(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults merged with a single YAML file and the process
// environment. Used by Watch.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, scouterrors.ConfigError("failed to load config", err)
	}
	env, err := newEnvironment(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, scouterrors.ConfigError("failed to read .env", err)
	}
	cfg.applyEnvOverrides(env)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads .solrscout.yaml, falling back to .solrscout.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ProjectFile)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".solrscout.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Models merge by name.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Engine
	setString(&c.Engine.Backend, other.Engine.Backend)
	setString(&c.Engine.Solr.URL, other.Engine.Solr.URL)
	setString(&c.Engine.Solr.Core, other.Engine.Solr.Core)
	setString(&c.Engine.Solr.Timeout, other.Engine.Solr.Timeout)
	setString(&c.Engine.Solr.IDField, other.Engine.Solr.IDField)
	setInt(&c.Engine.Solr.Retries, other.Engine.Solr.Retries)
	setInt(&c.Engine.Solr.MaxFailures, other.Engine.Solr.MaxFailures)
	setString(&c.Engine.Solr.ResetTimeout, other.Engine.Solr.ResetTimeout)
	setInt(&c.Engine.Solr.PoolSize, other.Engine.Solr.PoolSize)
	setString(&c.Engine.Bleve.Path, other.Engine.Bleve.Path)

	// Store
	setString(&c.Store.Driver, other.Store.Driver)
	setString(&c.Store.DSN, other.Store.DSN)

	// Models
	if len(other.Models) > 0 && c.Models == nil {
		c.Models = make(map[string]ModelConfig, len(other.Models))
	}
	for name, m := range other.Models {
		c.Models[name] = m
	}

	// Booleans can only be switched on by a file.
	if other.Hydration.Strict {
		c.Hydration.Strict = true
	}
	if other.Telemetry.Disabled {
		c.Telemetry.Disabled = true
	}
	setString(&c.Telemetry.FlushInterval, other.Telemetry.FlushInterval)

	// Cache
	setString(&c.Cache.Backend, other.Cache.Backend)
	setInt(&c.Cache.Size, other.Cache.Size)
	setString(&c.Cache.TTL, other.Cache.TTL)
	setString(&c.Cache.Redis.Addr, other.Cache.Redis.Addr)
	setString(&c.Cache.Redis.Password, other.Cache.Redis.Password)
	setInt(&c.Cache.Redis.DB, other.Cache.Redis.DB)
	setString(&c.Cache.Redis.Prefix, other.Cache.Redis.Prefix)

	// Server
	setString(&c.Server.Addr, other.Server.Addr)
	setString(&c.Server.LogLevel, other.Server.LogLevel)
	setInt(&c.Server.LogMaxSizeMB, other.Server.LogMaxSizeMB)
	setInt(&c.Server.LogMaxFiles, other.Server.LogMaxFiles)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// environment resolves overrides from the process environment first and
// the .env file second.
type environment struct {
	dotenv map[string]string
}

func newEnvironment(dotenvPath string) (*environment, error) {
	env := &environment{dotenv: map[string]string{}}
	if !fileExists(dotenvPath) {
		return env, nil
	}
	values, err := godotenv.Read(dotenvPath)
	if err != nil {
		return nil, err
	}
	env.dotenv = values
	return env, nil
}

func (e *environment) get(key string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		return v
	}
	return e.dotenv[EnvPrefix+key]
}

// applyEnvOverrides applies SOLRSCOUT_* overrides.
func (c *Config) applyEnvOverrides(env *environment) {
	strs := map[string]*string{
		"ENGINE":         &c.Engine.Backend,
		"SOLR_URL":       &c.Engine.Solr.URL,
		"SOLR_CORE":      &c.Engine.Solr.Core,
		"SOLR_TIMEOUT":   &c.Engine.Solr.Timeout,
		"SOLR_ID_FIELD":  &c.Engine.Solr.IDField,
		"BLEVE_PATH":     &c.Engine.Bleve.Path,
		"STORE_DRIVER":   &c.Store.Driver,
		"STORE_DSN":      &c.Store.DSN,
		"CACHE_BACKEND":  &c.Cache.Backend,
		"CACHE_TTL":      &c.Cache.TTL,
		"REDIS_ADDR":     &c.Cache.Redis.Addr,
		"REDIS_PASSWORD": &c.Cache.Redis.Password,
		"SERVER_ADDR":    &c.Server.Addr,
		"LOG_LEVEL":      &c.Server.LogLevel,
	}
	for key, dst := range strs {
		if v := env.get(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SOLR_RETRIES":    &c.Engine.Solr.Retries,
		"CACHE_SIZE":      &c.Cache.Size,
		"REDIS_DB":        &c.Cache.Redis.DB,
		"LOG_MAX_SIZE_MB": &c.Server.LogMaxSizeMB,
		"LOG_MAX_FILES":   &c.Server.LogMaxFiles,
	}
	for key, dst := range ints {
		if v := env.get(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	// Booleans accept explicit false here, unlike files.
	bools := map[string]*bool{
		"HYDRATION_STRICT":   &c.Hydration.Strict,
		"TELEMETRY_DISABLED": &c.Telemetry.Disabled,
	}
	for key, dst := range bools {
		if v := env.get(key); v != "" {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}
}

// Model returns the settings for name and whether it is configured.
// Index falls back to the model name.
func (c *Config) Model(name string) (ModelConfig, bool) {
	m, ok := c.Models[name]
	if !ok {
		return ModelConfig{}, false
	}
	if m.Index == "" {
		m.Index = name
	}
	return m, true
}

// ModelNames returns the configured model names in sorted order.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SolrTimeout returns the parsed Solr timeout.
func (c *Config) SolrTimeout() time.Duration {
	return mustDuration(c.Engine.Solr.Timeout)
}

// SolrResetTimeout returns the parsed circuit breaker reset timeout.
func (c *Config) SolrResetTimeout() time.Duration {
	return mustDuration(c.Engine.Solr.ResetTimeout)
}

// CacheTTL returns the parsed cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return mustDuration(c.Cache.TTL)
}

// TelemetryFlushInterval returns the parsed flush interval.
func (c *Config) TelemetryFlushInterval() time.Duration {
	return mustDuration(c.Telemetry.FlushInterval)
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !isBackend(c.Engine.Backend) {
		fail("engine.backend must be 'solr' or 'bleve', got %q", c.Engine.Backend)
	}
	if c.usesBackend(BackendSolr) {
		if u, err := url.Parse(c.Engine.Solr.URL); err != nil || u.Scheme == "" || u.Host == "" {
			fail("engine.solr.url must be an absolute URL, got %q", c.Engine.Solr.URL)
		}
		if c.Engine.Solr.IDField == "" {
			fail("engine.solr.id_field must not be empty")
		}
	}
	for field, v := range map[string]string{
		"engine.solr.timeout":       c.Engine.Solr.Timeout,
		"engine.solr.reset_timeout": c.Engine.Solr.ResetTimeout,
		"cache.ttl":                 c.Cache.TTL,
		"telemetry.flush_interval":  c.Telemetry.FlushInterval,
	} {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			fail("%s must be a non-negative duration, got %q", field, v)
		}
	}
	if c.Engine.Solr.MaxFailures < 0 {
		fail("engine.solr.max_failures must be non-negative, got %d", c.Engine.Solr.MaxFailures)
	}

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			fail("store.dsn is required for postgres")
		}
	default:
		fail("store.driver must be 'sqlite' or 'postgres', got %q", c.Store.Driver)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		fail("cache.backend must be 'memory', 'redis' or 'none', got %q", c.Cache.Backend)
	}
	if c.Cache.Size < 0 {
		fail("cache.size must be non-negative, got %d", c.Cache.Size)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		fail("cache.redis.addr is required for the redis backend")
	}

	for _, name := range c.ModelNames() {
		m := c.Models[name]
		if m.PerPage < 0 {
			fail("models.%s.per_page must be non-negative, got %d", name, m.PerPage)
		}
		if m.Engine != "" && !isBackend(m.Engine) {
			fail("models.%s.engine must be 'solr', 'bleve' or empty, got %q", name, m.Engine)
		}
	}

	if c.Server.LogMaxSizeMB < 0 {
		fail("server.log_max_size_mb must be non-negative, got %d", c.Server.LogMaxSizeMB)
	}
	if c.Server.LogMaxFiles < 0 {
		fail("server.log_max_files must be non-negative, got %d", c.Server.LogMaxFiles)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		fail("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	if len(errs) == 0 {
		return nil
	}
	return scouterrors.New(scouterrors.ErrCodeConfigInvalid, "invalid configuration", errors.Join(errs...)).
		WithSuggestion("Run 'solrscout config show' to inspect the effective configuration")
}

// usesBackend reports whether the default engine or any model uses b.
func (c *Config) usesBackend(b string) bool {
	if c.Engine.Backend == b {
		return true
	}
	for _, m := range c.Models {
		if m.Engine == b {
			return true
		}
	}
	return false
}

func isBackend(b string) bool {
	return b == BackendSolr || b == BackendBleve
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
