package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solrscout.log")
	lines := `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"http_request","model":"products","status":200}
{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"mcp_search_failed","model":"posts","error":"timeout"}
{"time":"2026-01-02T10:00:02Z","level":"ERROR","msg":"server_stopped","error":"boom"}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestLogs_TailWithLevel(t *testing.T) {
	path := writeLog(t)

	out, err := executeCmd(t, "logs", "--file", path, "--level", "warn", "--no-color")

	require.NoError(t, err)
	assert.NotContains(t, out, "http_request")
	assert.Contains(t, out, "mcp_search_failed")
	assert.Contains(t, out, "server_stopped")
}

func TestLogs_ModelAndLines(t *testing.T) {
	path := writeLog(t)

	out, err := executeCmd(t, "logs", "--file", path, "--model", "products", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "http_request")
	assert.NotContains(t, out, "mcp_search_failed")

	out, err = executeCmd(t, "logs", "--file", path, "-n", "1", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "server_stopped")
	assert.NotContains(t, out, "http_request")
}

func TestLogs_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "logs", "--file", filepath.Join(t.TempDir(), "nope.log"))

	assert.Error(t, err)
}

func TestLogs_InvalidPattern(t *testing.T) {
	path := writeLog(t)

	_, err := executeCmd(t, "logs", "--file", path, "--filter", "(")

	assert.Error(t, err)
}
