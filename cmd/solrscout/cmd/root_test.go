package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	out, err := executeCmd(t, "--help")

	// Then: it should show usage information
	require.NoError(t, err)
	assert.Contains(t, out, "solrscout")
	assert.Contains(t, out, "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	out, err := executeCmd(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "solrscout version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()

	// When: listing its subcommands
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	// Then: every command is registered
	for _, want := range []string{"search", "facets", "keys", "serve", "mcp", "ping", "stats", "config", "logs", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestOpenService_NoModels(t *testing.T) {
	// Given: a project directory without configuration
	isolateUserConfig(t)
	dir := t.TempDir()

	// When: running a command that needs the service
	_, err := executeCmd(t, "-C", dir, "keys", "products")

	// Then: it fails with a configuration error and a hint
	require.Error(t, err)
	assert.Equal(t, scouterrors.ErrCodeConfigInvalid, scouterrors.GetCode(err))
	assert.Contains(t, scouterrors.FormatForCLI(err), "solrscout config init")
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: a heap profile path
	path := filepath.Join(t.TempDir(), "heap.prof")

	// When: running a command with --profile-mem
	_, err := executeCmd(t, "--profile-mem", path, "version", "--short")

	// Then: the profile is written when the command finishes
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
