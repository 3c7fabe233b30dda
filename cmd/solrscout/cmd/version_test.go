package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/solrscout/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	out, err := executeCmd(t, "version")

	require.NoError(t, err)
	assert.Equal(t, version.String(), strings.TrimSpace(out))
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := executeCmd(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Short(), strings.TrimSpace(out))
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := executeCmd(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info["version"])
}
