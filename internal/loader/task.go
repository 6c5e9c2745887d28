package loader

import "sync"

// Task is the caller-owned handle over one scheduled batch of jobs. Tasks
// support merging batches together and canceling whatever the batch still
// has pending. Go has no destructors, so ownership ends explicitly: call
// Remove to cancel, or Detach to let the jobs run unowned.
type Task struct {
	loader *AsyncLoader

	mu   sync.Mutex
	jobs map[*Job]struct{}
}

// Jobs returns a snapshot of the jobs currently owned by the task.
func (t *Task) Jobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for j := range t.jobs {
		out = append(out, j)
	}
	return out
}

// Merge transfers ownership of other's jobs into t; other ends up empty.
// Both tasks must come from the same loader.
func (t *Task) Merge(other *Task) {
	if other == nil || other == t {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	if t.jobs == nil {
		t.jobs = make(map[*Job]struct{}, len(other.jobs))
	}
	for j := range other.jobs {
		t.jobs[j] = struct{}{}
	}
	other.jobs = nil
}

// Detach empties the task without canceling anything. The jobs keep
// running; they simply no longer have an owner to cancel them.
func (t *Task) Detach() {
	t.mu.Lock()
	t.jobs = nil
	t.mu.Unlock()
}

// Remove cancels every owned job that is still pending and not already on a
// worker, then blocks until every owned job is terminal. Jobs that were
// executing when Remove ran are never interrupted: they keep whatever
// status their function produced. Only owned jobs that are still pending,
// and pending jobs depending on those, get flipped to CANCELED or
// DEPENDENCY_FAILED (the cause a given job observes depends on cancellation
// order, which is not deterministic); a job of another task that depends
// only on an executing job still runs once that job succeeds.
//
// After Remove returns the task is empty; calling it again is a no-op.
func (t *Task) Remove() {
	t.mu.Lock()
	jobs := t.jobs
	t.jobs = nil
	t.mu.Unlock()
	if len(jobs) == 0 {
		return
	}

	l := t.loader
	l.mu.Lock()
	for j := range jobs {
		if _, busy := l.executing[j]; busy {
			continue
		}
		if l.scheduled[j] != nil {
			l.failLocked(j, newErrorf(CodeCanceled, "load job %q canceled", j.name))
		}
	}
	l.checkDrainedLocked()
	l.mu.Unlock()

	// Whatever is not terminal now was executing above; wait it out.
	for j := range jobs {
		if j.Status() != StatusPending {
			continue
		}
		j.waiters.Add(1)
		<-j.finished
		j.waiters.Add(-1)
	}
}
