// Package pdal grids LAS/LAZ point clouds by shelling out to the pdal
// command line tool. The binary is probed once at construction; callers
// gate on Available before planning work that needs it.
package pdal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/martibosch/swisstopopy/internal/domain"
)

// Rasterizer implements domain.PointCloudRasterizer.
type Rasterizer struct {
	bin    string
	logger *slog.Logger
}

// NewRasterizer probes PATH for the pdal binary.
func NewRasterizer(logger *slog.Logger) *Rasterizer {
	bin, err := exec.LookPath("pdal")
	if err != nil {
		bin = ""
		logger.Debug("pdal binary not found, point cloud rasterization disabled")
	}
	return &Rasterizer{bin: bin, logger: logger}
}

// Available reports whether the pdal binary was found.
func (r *Rasterizer) Available() bool {
	return r.bin != ""
}

// Rasterize grids the returns of srcPath into a per-cell count GeoTIFF at
// dstPath, keeping only the classification range in opts.
func (r *Rasterizer) Rasterize(ctx context.Context, srcPath, dstPath string, opts domain.RasterizeOptions) error {
	if r.bin == "" {
		return errors.New("pdal binary not found")
	}

	spec, err := buildPipeline(srcPath, dstPath, opts)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.bin, "pipeline", "--stdin")
	cmd.Stdin = bytes.NewReader(spec)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdal pipeline: %w: %s", err, out)
	}

	r.logger.Debug("point cloud rasterized", "src", srcPath, "dst", dstPath)
	return nil
}

// buildPipeline renders the reader-filter-writer stage chain pdal executes.
func buildPipeline(srcPath, dstPath string, opts domain.RasterizeOptions) ([]byte, error) {
	stages := []any{
		map[string]any{
			"type":     "readers.las",
			"filename": srcPath,
		},
	}
	if opts.ClassHigh > 0 {
		stages = append(stages, map[string]any{
			"type":   "filters.range",
			"limits": fmt.Sprintf("Classification[%d:%d]", opts.ClassLow, opts.ClassHigh),
		})
	}

	writer := map[string]any{
		"type":        "writers.gdal",
		"filename":    dstPath,
		"output_type": "count",
		"gdaldriver":  "GTiff",
		"data_type":   "float32",
	}
	if opts.Resolution > 0 {
		writer["resolution"] = opts.Resolution
	}
	stages = append(stages, writer)

	return json.Marshal(map[string]any{"pipeline": stages})
}
