package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffs "github.com/embeddedfs/flashfs"
	"github.com/embeddedfs/flashfs/internal/config"
)

const sampleLayout = `
image: /var/lib/ffs/image.bin
areas:
  - id: 0
    offset: 0
    length: 8192
  - id: 1
    offset: 8192
    length: 8192
`

func writeLayout(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesAreas(t *testing.T) {
	path := writeLayout(t, sampleLayout)
	layout, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ffs/image.bin", layout.Image)
	require.Len(t, layout.Areas, 2)
	assert.Equal(t, uint16(1), layout.Areas[1].ID)
	assert.Equal(t, uint32(8192), layout.Areas[1].Offset)
}

func TestDescriptorsConvertsToAreaDesc(t *testing.T) {
	path := writeLayout(t, sampleLayout)
	layout, err := config.Load(path)
	require.NoError(t, err)

	want := []ffs.AreaDesc{
		{ID: 0, Offset: 0, Length: 8192},
		{ID: 1, Offset: 8192, Length: 8192},
	}
	assert.Equal(t, want, layout.Descriptors())
}

func TestLoadRejectsEmptyAreaList(t *testing.T) {
	path := writeLayout(t, "image: /tmp/image.bin\nareas: []\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
