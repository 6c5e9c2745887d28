package config

import (
	"fmt"
)

// DefaultMaxThreads is used when neither the grid nor the CLI sets a worker
// count.
const DefaultMaxThreads = 4

// Grid is the unified, format-agnostic representation of one execution
// grid: every job to run plus the loader-wide settings.
type Grid struct {
	Jobs     []*Job
	Settings Settings
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	Name      string
	Run       string
	DependsOn []string
	Priority  int
	Env       map[string]string
	Dir       string
}

// Settings holds loader-wide knobs. Zero values mean "not set".
type Settings struct {
	MaxThreads int
}

// Merge appends other's jobs into g. Merged files must agree on the
// settings they set.
func (g *Grid) Merge(other *Grid) error {
	if other == nil {
		return nil
	}
	g.Jobs = append(g.Jobs, other.Jobs...)
	if other.Settings.MaxThreads != 0 {
		if g.Settings.MaxThreads != 0 && g.Settings.MaxThreads != other.Settings.MaxThreads {
			return fmt.Errorf("conflicting max_threads settings: %d and %d",
				g.Settings.MaxThreads, other.Settings.MaxThreads)
		}
		g.Settings.MaxThreads = other.Settings.MaxThreads
	}
	return nil
}

// Validate checks the grid for the structural mistakes a user can make in
// a grid file: duplicate or empty names, empty commands, negative thread
// counts, and depends_on entries that point nowhere. Dependency cycles are
// reported later, when the grid is ordered for execution.
func (g *Grid) Validate() error {
	if g.Settings.MaxThreads < 0 {
		return fmt.Errorf("max_threads must be positive, got %d", g.Settings.MaxThreads)
	}
	names := make(map[string]struct{}, len(g.Jobs))
	for _, job := range g.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job with empty name")
		}
		if _, dup := names[job.Name]; dup {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		names[job.Name] = struct{}{}
		if job.Run == "" {
			return fmt.Errorf("job %q has an empty run command", job.Name)
		}
	}
	for _, job := range g.Jobs {
		for _, dep := range job.DependsOn {
			if dep == job.Name {
				return fmt.Errorf("job %q depends on itself", job.Name)
			}
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("job %q depends on unknown job %q", job.Name, dep)
			}
		}
	}
	return nil
}

// MaxThreads resolves the effective worker count: an explicit override
// wins, then the grid's settings block, then the default.
func (g *Grid) MaxThreads(override int) int {
	if override > 0 {
		return override
	}
	if g.Settings.MaxThreads > 0 {
		return g.Settings.MaxThreads
	}
	return DefaultMaxThreads
}
