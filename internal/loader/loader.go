package loader

import (
	"container/heap"
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vk/loadgridgo/internal/metrics"
)

type poolState int

const (
	stateStopped poolState = iota
	stateRunning
	stateStopping
)

// jobInfo is the scheduler's bookkeeping for one pending job. The loader
// holds an entry per scheduled job until the job turns terminal.
type jobInfo struct {
	// depsLeft counts dependencies that have not succeeded yet.
	depsLeft int
	// effective is the dispatch priority: the requested priority raised by
	// any inherited boosts. Never decreases.
	effective int
	// seq is the job's live ready-heap sequence number, 0 while the job is
	// not queued. Heap entries with a different seq are stale.
	seq uint64
}

// AsyncLoader executes a dynamically growing, partially-ordered set of jobs
// on a bounded worker pool. See the package documentation for the model.
type AsyncLoader struct {
	maxThreads int
	total      metrics.Gauge
	active     metrics.Gauge
	logger     *slog.Logger

	mu        sync.Mutex
	scheduled map[*Job]*jobInfo
	executing map[*Job]struct{}
	ready     readyQueue
	seq       uint64

	state     poolState
	workers   int
	idle      int
	readyCond *sync.Cond // workers park here while the heap is empty
	joinCond  *sync.Cond // Stop (and a racing Start) wait here for workers to exit

	// emptyCh is closed while no jobs are scheduled; Wait blocks on it. A
	// fresh channel replaces it whenever the pending set becomes non-empty.
	emptyCh chan struct{}
}

// Option configures an AsyncLoader.
type Option func(*AsyncLoader)

// WithLogger sets the logger used by the worker pool. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *AsyncLoader) {
		l.logger = logger
	}
}

// New creates a loader that will run at most maxThreads jobs concurrently.
// The two gauges observe the total and the actively-executing worker
// counts; nil gauges are replaced with private ones. The pool starts in the
// stopped state: jobs can be scheduled and canceled, but nothing executes
// until Start.
func New(total, active metrics.Gauge, maxThreads int, opts ...Option) *AsyncLoader {
	if maxThreads < 1 {
		maxThreads = 1
	}
	if total == nil {
		total = &metrics.AtomicGauge{}
	}
	if active == nil {
		active = &metrics.AtomicGauge{}
	}
	l := &AsyncLoader{
		maxThreads: maxThreads,
		total:      total,
		active:     active,
		logger:     slog.Default(),
		scheduled:  make(map[*Job]*jobInfo),
		executing:  make(map[*Job]struct{}),
		emptyCh:    make(chan struct{}),
	}
	close(l.emptyCh)
	l.readyCond = sync.NewCond(&l.mu)
	l.joinCond = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxThreads returns the pool's immutable concurrency bound.
func (l *AsyncLoader) MaxThreads() int {
	return l.maxThreads
}

// Schedule atomically admits a batch of jobs at the given requested
// priority and returns a Task owning exactly those jobs. Nil and duplicate
// entries are ignored.
//
// If the batch, together with already-scheduled jobs, contains a dependency
// cycle, Schedule returns a CodeScheduleFailed error naming the jobs on the
// cycle and admits nothing; scheduler state is unchanged. A job whose
// dependency has already failed is admitted and immediately fails with
// CodeDependencyFailed, transitively.
func (l *AsyncLoader) Schedule(jobs []*Job, priority int) (*Task, error) {
	batch := make([]*Job, 0, len(jobs))
	seen := make(map[*Job]struct{}, len(jobs))
	for _, j := range jobs {
		if j == nil {
			continue
		}
		if _, dup := seen[j]; dup {
			continue
		}
		seen[j] = struct{}{}
		batch = append(batch, j)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Everything that can reject the batch runs before the first mutation,
	// so a rejected Schedule leaves no trace.
	for _, j := range batch {
		if j.fn == nil {
			return nil, newErrorf(CodeScheduleFailed, "load job %q has no function", j.name)
		}
		if j.loader.Load() != nil {
			return nil, newErrorf(CodeScheduleFailed, "load job %q is already scheduled", j.name)
		}
	}
	if cycle := findCycle(batch); cycle != nil {
		names := make([]string, 0, len(cycle)+1)
		for _, c := range cycle {
			names = append(names, c.name)
		}
		names = append(names, cycle[0].name)
		return nil, newErrorf(CodeScheduleFailed,
			"job dependency cycle detected: %s", strings.Join(names, " -> "))
	}

	if len(batch) > 0 && len(l.scheduled) == 0 {
		l.emptyCh = make(chan struct{})
	}
	for _, j := range batch {
		j.loader.Store(l)
		j.priority.Store(int64(priority))
		l.scheduled[j] = &jobInfo{effective: priority}
	}

	// Install reverse edges and count unresolved dependencies. Edges from
	// failed dependencies never fire, so they only mark the job for the
	// failure pass below.
	var failed []*Job
	for _, j := range batch {
		info := l.scheduled[j]
		depFailed := false
		for d := range j.deps {
			switch d.Status() {
			case StatusSuccess:
				// resolved
			case StatusFailed:
				info.depsLeft++
				depFailed = true
			default:
				info.depsLeft++
				if d.revDeps == nil {
					d.revDeps = make(map[*Job]struct{})
				}
				d.revDeps[j] = struct{}{}
			}
		}
		if depFailed {
			failed = append(failed, j)
		}
	}
	for _, j := range failed {
		if l.scheduled[j] == nil {
			continue // already failed through a batch sibling
		}
		l.failLocked(j, newErrorf(CodeDependencyFailed,
			"load job %q: waited dependency has already failed", j.name))
	}
	for _, j := range batch {
		if info := l.scheduled[j]; info != nil && info.depsLeft == 0 {
			l.enqueueLocked(j, info)
		}
	}
	l.checkDrainedLocked()

	l.logger.Debug("Scheduled job batch.", "jobs", len(batch), "priority", priority)

	task := &Task{loader: l, jobs: make(map[*Job]struct{}, len(batch))}
	for _, j := range batch {
		task.jobs[j] = struct{}{}
	}
	return task, nil
}

// Start transitions the pool to running and begins executing ready jobs.
// Calling Start on a running pool is a no-op; a Start racing a Stop waits
// for the stop to finish first.
func (l *AsyncLoader) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.state == stateStopping {
		l.joinCond.Wait()
	}
	if l.state == stateRunning {
		return
	}
	l.state = stateRunning
	l.spawnLocked()
}

// Stop signals all workers to exit after their current job and joins them.
// Pending jobs stay queued; a later Start resumes them. Stop on a stopped
// pool is a no-op.
func (l *AsyncLoader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.state == stateStopping {
		l.joinCond.Wait()
	}
	if l.state == stateStopped {
		return
	}
	l.state = stateStopping
	l.readyCond.Broadcast()
	for l.workers > 0 {
		l.joinCond.Wait()
	}
	l.state = stateStopped
	l.joinCond.Broadcast()
}

// Wait blocks until the loader has no pending jobs, successfully scheduled
// work included. It does not stop the pool. The context bounds the wait
// only.
func (l *AsyncLoader) Wait(ctx context.Context) error {
	l.mu.Lock()
	ch := l.emptyCh
	l.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueLocked pushes a job with no unresolved dependencies onto the ready
// heap and, if the pool is running, makes sure a worker will pick it up.
func (l *AsyncLoader) enqueueLocked(j *Job, info *jobInfo) {
	l.seq++
	info.seq = l.seq
	heap.Push(&l.ready, readyEntry{priority: info.effective, seq: info.seq, job: j})
	if l.state == stateRunning {
		l.spawnLocked()
		l.readyCond.Signal()
	}
}

// popReadyLocked returns the highest-priority ready job, discarding stale
// heap entries on the way, or nil when nothing is ready.
func (l *AsyncLoader) popReadyLocked() *Job {
	for l.ready.Len() > 0 {
		e := heap.Pop(&l.ready).(readyEntry)
		info := l.scheduled[e.job]
		if info == nil || info.seq != e.seq {
			continue // canceled, finished, or re-keyed by a boost
		}
		info.seq = 0
		return e.job
	}
	return nil
}

// finishLocked records the outcome of an executed job and unlocks or fails
// its dependents.
func (l *AsyncLoader) finishLocked(j *Job, err error) {
	if err != nil {
		l.failLocked(j, asJobFailure(j, err))
		l.checkDrainedLocked()
		return
	}
	delete(l.scheduled, j)
	j.status.Store(int32(StatusSuccess))
	close(j.finished)
	for r := range j.revDeps {
		info := l.scheduled[r]
		if info == nil {
			continue
		}
		info.depsLeft--
		if info.depsLeft == 0 {
			l.enqueueLocked(r, info)
		}
	}
	l.checkDrainedLocked()
}

// failLocked flips a pending job to FAILED with the given cause and
// recursively fails every pending job depending on it. The job must not be
// executing.
func (l *AsyncLoader) failLocked(j *Job, e *Error) {
	delete(l.scheduled, j) // also invalidates any ready-heap entry
	j.failure = e
	j.status.Store(int32(StatusFailed))
	close(j.finished)
	for r := range j.revDeps {
		if l.scheduled[r] == nil {
			continue
		}
		l.failLocked(r, newErrorf(CodeDependencyFailed,
			"load job %q: dependency %q failed", r.name, j.name))
	}
}

// checkDrainedLocked releases loader-level waiters once the pending set is
// empty.
func (l *AsyncLoader) checkDrainedLocked() {
	if len(l.scheduled) != 0 {
		return
	}
	select {
	case <-l.emptyCh:
	default:
		close(l.emptyCh)
	}
}

// boostForWait applies priority inheritance for a wait on j: the ambient
// priority is the effective priority of the job executing on the waiting
// goroutine, or an explicit WithAmbientPriority value for external waiters.
func (l *AsyncLoader) boostForWait(ctx context.Context, j *Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur := executingJobFrom(ctx); cur != nil {
		p := int(cur.priority.Load())
		if info := l.scheduled[cur]; info != nil {
			p = info.effective
		}
		l.boostLocked(j, p)
		return
	}
	if p, ok := ambientPriorityFrom(ctx); ok {
		l.boostLocked(j, p)
	}
}

// boostLocked raises the effective priority of a pending job and,
// recursively, of its unresolved dependencies. Boosts only ever increase a
// priority. A queued job is re-keyed lazily: a fresh heap entry is pushed
// and the old one goes stale; a boost racing a dispatch simply loses.
func (l *AsyncLoader) boostLocked(j *Job, priority int) {
	info := l.scheduled[j]
	if info == nil || priority <= info.effective {
		return
	}
	info.effective = priority
	if info.seq != 0 {
		l.seq++
		info.seq = l.seq
		heap.Push(&l.ready, readyEntry{priority: priority, seq: info.seq, job: j})
	}
	for d := range j.deps {
		l.boostLocked(d, priority)
	}
}
