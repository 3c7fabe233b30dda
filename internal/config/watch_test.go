package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watchResults collects Watch callbacks.
type watchResults struct {
	mu      sync.Mutex
	configs []*Config
	errs    []error
}

func (r *watchResults) record(cfg *Config, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	r.errs = append(r.errs, err)
}

func (r *watchResults) last() (*Config, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.configs)
	if n == 0 {
		return nil, 0, nil
	}
	return r.configs[n-1], n, r.errs[n-1]
}

func startWatch(t *testing.T, path string) *watchResults {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	results := &watchResults{}
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, results.record) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return results
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	// Given: a watched project config
	path := filepath.Join(t.TempDir(), ProjectFile)
	writeFile(t, path, "engine:\n  backend: bleve\n")
	results := startWatch(t, path)

	// When: the file is rewritten (repeatedly, until the watcher is armed)
	content := "engine:\n  backend: bleve\nmodels:\n  posts:\n    per_page: 5\n"
	require.Eventually(t, func() bool {
		writeFile(t, path, content)
		_, n, _ := results.last()
		return n > 0
	}, 5*time.Second, 200*time.Millisecond)

	// Then: the callback receives the new configuration
	cfg, _, err := results.last()
	require.NoError(t, err)
	m, ok := cfg.Model("posts")
	require.True(t, ok)
	assert.Equal(t, 5, m.PerPage)
}

func TestWatch_ReportsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	writeFile(t, path, "engine:\n  backend: bleve\n")
	results := startWatch(t, path)

	require.Eventually(t, func() bool {
		writeFile(t, path, "engine: [unclosed\n")
		_, n, _ := results.last()
		return n > 0
	}, 5*time.Second, 200*time.Millisecond)

	cfg, _, err := results.last()
	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFile)
	writeFile(t, path, "engine:\n  backend: bleve\n")
	results := startWatch(t, path)

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(2 * WatchDebounce)

	_, n, _ := results.last()
	assert.Zero(t, n)
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", ProjectFile), func(*Config, error) {})

	assert.Error(t, err)
}
