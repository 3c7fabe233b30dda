package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/solrscout/internal/embedded"
	"github.com/Aman-CERP/solrscout/internal/store"
)

// isolateUserConfig points the user config at an empty directory.
func isolateUserConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

// executeCmd runs the root command with args and returns its stdout.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// setupProject writes a bleve-backed project with a populated record store
// and index, and returns its directory.
func setupProject(t *testing.T) string {
	t.Helper()
	isolateUserConfig(t)

	dir := t.TempDir()
	indexDir := filepath.Join(dir, "indexes")
	dsn := filepath.Join(dir, "records.db")

	yaml := fmt.Sprintf(`version: 1
engine:
  backend: bleve
  bleve:
    path: %s
store:
  driver: sqlite
  dsn: %s
models:
  products:
    per_page: 2
    soft_deletes: true
cache:
  backend: none
`, indexDir, dsn)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".solrscout.yaml"), []byte(yaml), 0644))

	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	deleted := time.Now()
	records := []*store.Record{
		{ID: "1", Type: "products", Fields: map[string]any{"name": "alpine boots", "color": "red"}},
		{ID: "2", Type: "products", Fields: map[string]any{"name": "beach sandals", "color": "blue"}},
		{ID: "3", Type: "products", Fields: map[string]any{"name": "city boots", "color": "red"}},
		{ID: "4", Type: "products", Fields: map[string]any{"name": "desert boots", "color": "red"}, DeletedAt: &deleted},
	}
	require.NoError(t, st.Upsert(ctx, records...))
	require.NoError(t, st.Close())

	catalog := embedded.NewCatalog(indexDir)
	for _, r := range records {
		require.NoError(t, catalog.Put(ctx, "products", r.Document()))
	}
	require.NoError(t, catalog.Close())

	return dir
}
