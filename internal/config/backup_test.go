package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_MissingFile(t *testing.T) {
	backupPath, err := Backup(filepath.Join(t.TempDir(), "config.yaml"))

	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackup_CopiesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "engine:\n  backend: bleve\n")

	backupPath, err := Backup(path)

	require.NoError(t, err)
	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "engine:\n  backend: bleve\n", string(data))
}

func TestBackup_KeepsNewestMaxBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "version: 1\n")

	var made []string
	for i := 0; i < MaxBackups+2; i++ {
		p, err := Backup(path)
		require.NoError(t, err)
		made = append(made, p)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, made[len(made)-1], backups[0], "newest first")
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope", "config.yaml"))

	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "version: 1\n")
	backupPath, err := Backup(path)
	require.NoError(t, err)

	writeFile(t, path, "version: 2\n")
	require.NoError(t, Restore(path, backupPath))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))

	// The overwritten version was kept too.
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestRestore_MissingBackup(t *testing.T) {
	err := Restore(filepath.Join(t.TempDir(), "config.yaml"), "/nonexistent.bak")
	assert.Error(t, err)
}
