package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"golang.org/x/sync/errgroup"

	"github.com/vk/loadgridgo/internal/config"
	"github.com/vk/loadgridgo/internal/ctxlog"
	"github.com/vk/loadgridgo/internal/fsutil"
	"github.com/vk/loadgridgo/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL grid loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a grid from a single .hcl file or from every .hcl file under a
// directory. Files are parsed concurrently, merged in discovery order, and
// the result is validated.
func (l *Loader) Load(ctx context.Context, path string) (*config.Grid, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("grid path: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("discovering grid files: %w", err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found under %s", path)
	}
	logger.Debug("Parsing grid files.", "count", len(files))

	grids := make([]*config.Grid, len(files))
	group, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			grid, err := l.loadFile(gctx, file)
			if err != nil {
				return err
			}
			grids[i] = grid
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := &config.Grid{}
	for _, grid := range grids {
		if err := merged.Merge(grid); err != nil {
			return nil, err
		}
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	logger.Debug("Grid loaded.", "jobs", len(merged.Jobs))
	return merged, nil
}

// loadFile parses and translates one grid file. Each call uses its own
// parser; hclparse.Parser is not safe for concurrent use.
func (l *Loader) loadFile(ctx context.Context, path string) (*config.Grid, error) {
	ctxlog.FromContext(ctx).Debug("Parsing grid file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var raw schema.GridFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}
	return translateGridFile(&raw)
}
