package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, cfg.Scan.Extensions, ".c")
	assert.Contains(t, cfg.Scan.Ignore, ".glyph")
	assert.Equal(t, 14000, cfg.Retrieve.MaxChars)
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(
		"scan:\n  extensions: [\".c\"]\n  ignore: [\"vendor\"]\nretrieve:\n  hops: 2\n"), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".c"}, cfg.Scan.Extensions)
	assert.Equal(t, []string{"vendor"}, cfg.Scan.Ignore)
	assert.Equal(t, 2, cfg.Retrieve.Hops)
}

func TestLoadFromPathInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("scan: [not a map"), 0o644))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestFindConfigDirWalksUp(t *testing.T) {
	root := t.TempDir()
	glyphDir := filepath.Join(root, ConfigDirName)
	require.NoError(t, os.MkdirAll(glyphDir, 0o755))
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindConfigDir(nested)
	require.NoError(t, err)
	assert.Equal(t, glyphDir, found)

	_, err = FindConfigDir(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestEnsureConfigDir(t *testing.T) {
	root := t.TempDir()
	dir, err := EnsureConfigDir(root)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	// Idempotent.
	again, err := EnsureConfigDir(root)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}
