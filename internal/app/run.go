package app

import (
	"context"
	"fmt"

	"github.com/vk/loadgridgo/internal/config"
	"github.com/vk/loadgridgo/internal/ctxlog"
	"github.com/vk/loadgridgo/internal/loader"
	"github.com/vk/loadgridgo/internal/metrics"
)

// Run executes the loaded grid (or prints its plan) based on the provided
// configuration. Canceling the context cancels the run: still-pending jobs
// are removed and executing commands are killed.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.Plan {
		return a.printPlan()
	}
	if len(a.grid.Jobs) == 0 {
		a.logger.Warn("No jobs found in grid, nothing to run.")
		return nil
	}

	jobs, specs, err := a.buildJobs(ctx)
	if err != nil {
		return err
	}

	maxThreads := a.grid.MaxThreads(appConfig.Workers)
	total := &metrics.AtomicGauge{}
	active := &metrics.AtomicGauge{}
	ld := loader.New(total, active, maxThreads, loader.WithLogger(a.logger))

	task, err := scheduleGrid(ld, jobs, specs)
	if err != nil {
		return fmt.Errorf("failed to schedule grid: %w", err)
	}

	a.logger.Info("Starting grid execution.", "jobs", len(jobs), "max_threads", maxThreads)
	ld.Start()
	defer ld.Stop()

	if err := ld.Wait(ctx); err != nil {
		a.logger.Warn("Run canceled, removing pending jobs.", "reason", err)
		task.Remove()
	} else {
		task.Detach()
	}

	failed := 0
	for _, j := range jobs {
		if j.Status() == loader.StatusSuccess {
			continue
		}
		failed++
		a.logger.Error("Job failed.", "job", j.Name(), "error", j.Wait(context.Background()))
	}
	a.logger.Info("Grid execution finished.", "jobs", len(jobs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("grid finished with %d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

// buildJobs compiles the grid into loader jobs in dependency order, so
// every job's dependencies exist before the jobs referencing them. It also
// returns the spec backing each built job.
func (a *App) buildJobs(ctx context.Context) ([]*loader.Job, map[*loader.Job]*config.Job, error) {
	order, err := planOrder(a.grid)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]*config.Job, len(a.grid.Jobs))
	for _, spec := range a.grid.Jobs {
		byName[spec.Name] = spec
	}

	built := make(map[string]*loader.Job, len(order))
	specs := make(map[*loader.Job]*config.Job, len(order))
	jobs := make([]*loader.Job, 0, len(order))
	for _, name := range order {
		spec := byName[name]
		deps := make([]*loader.Job, 0, len(spec.DependsOn))
		for _, dep := range spec.DependsOn {
			deps = append(deps, built[dep])
		}
		j := loader.NewJob(deps, name, commandJob(ctx, spec))
		built[name] = j
		specs[j] = spec
		jobs = append(jobs, j)
	}
	return jobs, specs, nil
}

// scheduleGrid admits the jobs class by class — one Schedule call per
// requested priority — merged into a single owning task.
func scheduleGrid(ld *loader.AsyncLoader, jobs []*loader.Job, specs map[*loader.Job]*config.Job) (*loader.Task, error) {
	classes := make(map[int][]*loader.Job)
	var priorities []int
	for _, j := range jobs {
		p := specs[j].Priority
		if _, seen := classes[p]; !seen {
			priorities = append(priorities, p)
		}
		classes[p] = append(classes[p], j)
	}

	var task *loader.Task
	for _, p := range priorities {
		t, err := ld.Schedule(classes[p], p)
		if err != nil {
			if task != nil {
				task.Remove()
			}
			return nil, err
		}
		if task == nil {
			task = t
		} else {
			task.Merge(t)
		}
	}
	return task, nil
}
