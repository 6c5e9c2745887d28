package loader

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestConcurrency(t *testing.T) {
	lt := newLoaderTest(t, 10)
	lt.loader.Start()

	for concurrency := 1; concurrency <= 10; concurrency++ {
		sync := newBarrier(concurrency)

		var executing atomic.Int64
		jobFunc := func(context.Context, *Job) error {
			if v := executing.Add(1); v > int64(concurrency) {
				t.Errorf("executing = %d, want <= %d", v, concurrency)
			}
			sync.arriveAndWait()
			executing.Add(-1)
			return nil
		}

		tasks := make([]*Task, 0, concurrency)
		for i := 0; i < concurrency; i++ {
			tasks = append(tasks, lt.schedule(lt.chainJobSet(5, jobFunc, "job"), 0))
		}
		if err := lt.loader.Wait(context.Background()); err != nil {
			t.Fatalf("loader.Wait: %v", err)
		}
		if got := executing.Load(); got != 0 {
			t.Fatalf("executing after wait = %d, want 0", got)
		}
		for _, task := range tasks {
			task.Detach()
		}
	}
}

func TestOverload(t *testing.T) {
	lt := newLoaderTest(t, 3)
	lt.loader.Start()

	maxThreads := lt.loader.MaxThreads()
	if maxThreads != 3 {
		t.Fatalf("MaxThreads = %d, want 3", maxThreads)
	}
	var executing atomic.Int64

	for concurrency := 4; concurrency <= 8; concurrency++ {
		jobFunc := func(context.Context, *Job) error {
			executing.Add(1)
			lt.randomSleepUs(100, 200, 100)
			if v := executing.Load(); v > int64(maxThreads) {
				t.Errorf("executing = %d, want <= %d", v, maxThreads)
			}
			executing.Add(-1)
			return nil
		}

		lt.loader.Stop()
		tasks := make([]*Task, 0, concurrency)
		for i := 0; i < concurrency; i++ {
			tasks = append(tasks, lt.schedule(lt.chainJobSet(5, jobFunc, "job"), 0))
		}
		lt.loader.Start()
		if err := lt.loader.Wait(context.Background()); err != nil {
			t.Fatalf("loader.Wait: %v", err)
		}
		if got := executing.Load(); got != 0 {
			t.Fatalf("executing after wait = %d, want 0", got)
		}
		for _, task := range tasks {
			task.Detach()
		}
	}
}

func TestRandomTasks(t *testing.T) {
	lt := newLoaderTest(t, 16)
	lt.loader.Start()

	jobFunc := func(_ context.Context, self *Job) error {
		// A job must never be entered before its dependencies succeeded.
		for _, d := range self.Dependencies() {
			if d.Status() != StatusSuccess {
				t.Errorf("job %q entered with dependency %q in status %v", self.Name(), d.Name(), d.Status())
			}
		}
		lt.randomSleepUs(100, 500, 5)
		return nil
	}

	var all []*Job
	tasks := make([]*Task, 0, 128)
	for i := 0; i < 128; i++ {
		jobs := lt.randomJobSet(lt.randomInt(1, 16), 5, jobFunc, "job")
		all = append(all, jobs...)
		tasks = append(tasks, lt.schedule(jobs, lt.randomInt(-2, 2)))
		lt.randomSleepUs(100, 900, 20)
	}

	if err := lt.loader.Wait(context.Background()); err != nil {
		t.Fatalf("loader.Wait: %v", err)
	}
	for _, j := range all {
		requireStatus(t, j, StatusSuccess)
	}
	for _, task := range tasks {
		task.Detach()
	}
}

func TestWorkerGauges(t *testing.T) {
	lt := newLoaderTest(t, 4)
	lt.loader.Start()

	var maxActive atomic.Int64
	jobFunc := func(context.Context, *Job) error {
		if v := lt.active.Value(); v > maxActive.Load() {
			maxActive.Store(v)
		}
		return nil
	}

	task := lt.schedule(lt.randomJobSet(32, 10, jobFunc, "job"), 0)
	defer task.Detach()
	if err := lt.loader.Wait(context.Background()); err != nil {
		t.Fatalf("loader.Wait: %v", err)
	}

	if v := maxActive.Load(); v < 1 || v > 4 {
		t.Fatalf("active gauge peak = %d, want within [1, 4]", v)
	}
	lt.loader.Stop()
	if v := lt.total.Value(); v != 0 {
		t.Fatalf("total gauge after stop = %d, want 0", v)
	}
	if v := lt.active.Value(); v != 0 {
		t.Fatalf("active gauge after stop = %d, want 0", v)
	}
}
