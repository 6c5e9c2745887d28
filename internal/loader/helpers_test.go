package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/vk/loadgridgo/internal/metrics"
)

// loaderTest bundles a loader with the randomness helpers the soak tests
// share.
type loaderTest struct {
	t      *testing.T
	loader *AsyncLoader
	total  *metrics.AtomicGauge
	active *metrics.AtomicGauge

	mu  sync.Mutex
	rng *rand.Rand
}

func newLoaderTest(t *testing.T, maxThreads int) *loaderTest {
	t.Helper()
	lt := &loaderTest{
		t:      t,
		total:  &metrics.AtomicGauge{},
		active: &metrics.AtomicGauge{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	lt.loader = New(lt.total, lt.active, maxThreads, WithLogger(quiet))
	t.Cleanup(lt.loader.Stop)
	return lt
}

func (lt *loaderTest) randomInt(from, to int) int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return from + lt.rng.Intn(to-from+1)
}

func (lt *loaderTest) randomSleepUs(minUs, maxUs, probabilityPercent int) {
	if lt.randomInt(0, 99) < probabilityPercent {
		time.Sleep(time.Duration(lt.randomInt(minUs, maxUs)) * time.Microsecond)
	}
}

// randomJobSet builds jobCount jobs where every earlier job becomes a
// dependency of a later one with the given probability.
func (lt *loaderTest) randomJobSet(jobCount, depProbabilityPercent int, fn JobFunc, namePrefix string) []*Job {
	jobs := make([]*Job, 0, jobCount)
	for j := 0; j < jobCount; j++ {
		var deps []*Job
		for d := 0; d < j; d++ {
			if lt.randomInt(0, 99) < depProbabilityPercent {
				deps = append(deps, jobs[d])
			}
		}
		jobs = append(jobs, NewJob(deps, fmt.Sprintf("%s%d", namePrefix, j), fn))
	}
	return jobs
}

// chainJobSet builds a linear chain of jobCount jobs.
func (lt *loaderTest) chainJobSet(jobCount int, fn JobFunc, namePrefix string) []*Job {
	jobs := []*Job{NewJob(nil, fmt.Sprintf("%s%d", namePrefix, 0), fn)}
	for j := 1; j < jobCount; j++ {
		jobs = append(jobs, NewJob([]*Job{jobs[j-1]}, fmt.Sprintf("%s%d", namePrefix, j), fn))
	}
	return jobs
}

func (lt *loaderTest) schedule(jobs []*Job, priority int) *Task {
	lt.t.Helper()
	task, err := lt.loader.Schedule(jobs, priority)
	if err != nil {
		lt.t.Fatalf("Schedule failed: %v", err)
	}
	return task
}

// barrier releases its parties in lockstep rounds, standing in for the
// C++-style barrier the concurrency scenarios are written against.
type barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	count   int
	round   int
}

func newBarrier(parties int) *barrier {
	b := &barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) arriveAndWait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	round := b.round
	b.count++
	if b.count == b.parties {
		b.count = 0
		b.round++
		b.cond.Broadcast()
		return
	}
	for round == b.round {
		b.cond.Wait()
	}
}

func noopJob(context.Context, *Job) error { return nil }

func waitErr(t *testing.T, j *Job) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return j.Wait(ctx)
}

func requireStatus(t *testing.T, j *Job, want Status) {
	t.Helper()
	if got := j.Status(); got != want {
		t.Fatalf("job %q status = %v, want %v", j.Name(), got, want)
	}
}

func requireCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := CodeOf(err); got != want {
		t.Fatalf("error code = %v (%v), want %v", got, err, want)
	}
}
