package app

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/vk/loadgridgo/internal/config"
)

// planOrder computes a topological execution order for the grid, or an
// error when the dependency graph has a cycle.
func planOrder(grid *config.Grid) ([]string, error) {
	var edges []toposort.Edge
	for _, job := range grid.Jobs {
		if len(job.DependsOn) == 0 {
			// No dependencies: add an edge from nil so the job is still
			// part of the sort.
			edges = append(edges, toposort.Edge{nil, job.Name})
			continue
		}
		for _, dep := range job.DependsOn {
			edges = append(edges, toposort.Edge{dep, job.Name})
		}
	}
	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("grid contains a dependency cycle: %w", err)
	}
	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// printPlan writes the execution order to the app's output, one job per
// line, without running anything.
func (a *App) printPlan() error {
	order, err := planOrder(a.grid)
	if err != nil {
		return err
	}
	byName := make(map[string]*config.Job, len(a.grid.Jobs))
	for _, job := range a.grid.Jobs {
		byName[job.Name] = job
	}

	fmt.Fprintf(a.outW, "Execution plan: %d jobs\n", len(order))
	for i, name := range order {
		job := byName[name]
		line := fmt.Sprintf("%3d. %s (priority %d)", i+1, name, job.Priority)
		if len(job.DependsOn) > 0 {
			line += " after " + strings.Join(job.DependsOn, ", ")
		}
		fmt.Fprintln(a.outW, line)
	}
	return nil
}
