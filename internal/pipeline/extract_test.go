package pipeline

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir string, members map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, "asset.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestExtractPointCloud(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{
		"readme.txt": "tile metadata",
		"tile.las":   "LASF-payload",
	})

	got, err := extractPointCloud(archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "asset.las"), got)

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "LASF-payload", string(content))
}

func TestExtractPointCloud_ReusesExisting(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{"tile.las": "LASF-payload"})

	first, err := extractPointCloud(archive)
	require.NoError(t, err)

	// a second run must not re-extract over the existing copy
	require.NoError(t, os.WriteFile(first, []byte("marker"), 0o644))
	second, err := extractPointCloud(archive)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	content, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "marker", string(content))
}

func TestExtractPointCloud_PassThrough(t *testing.T) {
	got, err := extractPointCloud("/cache/tile.laz")
	require.NoError(t, err)
	assert.Equal(t, "/cache/tile.laz", got)
}

func TestExtractPointCloud_NoPointCloudMember(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{"readme.txt": "no lidar here"})

	_, err := extractPointCloud(archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds no point cloud")
}
