package pipeline

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extractPointCloud returns a local .las or .laz path for a fetched asset,
// unpacking zip archives next to themselves. Non-archive paths pass through.
// Extraction is idempotent: an existing output is reused, so repeated runs
// share the cache directory's unpacked copy.
func extractPointCloud(srcPath string) (string, error) {
	if !strings.HasSuffix(srcPath, ".zip") {
		return srcPath, nil
	}

	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".las" && ext != ".laz" {
			continue
		}
		dst := strings.TrimSuffix(srcPath, ".zip") + ext
		if _, err := os.Stat(dst); err == nil {
			return dst, nil
		}
		if err := extractFile(f, dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	return "", fmt.Errorf("archive %s holds no point cloud", filepath.Base(srcPath))
}

// extractFile copies one archive member to dst through a temp file so a
// partial extraction never masquerades as a finished one.
func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive member: %w", err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".extract-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move extracted file: %w", err)
	}
	return nil
}
