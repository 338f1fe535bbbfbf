package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/internal/domain/models"
)

func TestWriteFlow_RemovesTempWhenRenameFails(t *testing.T) {
	// a non-empty directory cannot be replaced by a file
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := writeFlow(path, &models.IVRFlow{ID: "f1", Name: "Main"})
	assert.Error(t, err)
	assert.NoFileExists(t, path+".tmp")
	assert.DirExists(t, path)
}

func TestWriteFlow_NewFileDefaultsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")

	require.NoError(t, writeFlow(path, &models.IVRFlow{ID: "f1", Name: "Main"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	flow, err := readFlow(path)
	require.NoError(t, err)
	assert.Equal(t, "Main", flow.Name)
}
