package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/loadgridgo/internal/config"
	"github.com/vk/loadgridgo/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	grid   *config.Grid
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger and a loaded, validated
// grid. A grid that cannot be loaded is a fatal startup error and panics;
// the entrypoint recovers and turns it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	grid, err := loader.Load(ctx, appConfig.GridPath)
	if err != nil {
		panic(fmt.Errorf("failed to load grid: %w", err))
	}
	logger.Debug("Grid loaded and translated into unified model.", "jobs", len(grid.Jobs))

	return &App{
		outW:   outW,
		logger: logger,
		grid:   grid,
	}
}

// Grid returns the loaded grid. This is primarily for testing.
func (a *App) Grid() *config.Grid {
	return a.grid
}
