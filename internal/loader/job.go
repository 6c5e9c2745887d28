package loader

import (
	"context"
	"sync/atomic"
)

// Status is the lifecycle state of a job.
type Status int32

const (
	// StatusPending means the job has not reached a terminal status yet. A
	// job stays pending from construction until a worker finishes it or the
	// scheduler cancels it.
	StatusPending Status = iota
	// StatusSuccess means the job's function returned without error.
	StatusSuccess
	// StatusFailed means the job failed, was canceled, or lost a dependency.
	// The failure record is returned by Wait.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobFunc is the unit of work carried by a job. The context conveys the
// ambient logger and the identity of the executing job; self is the job the
// function belongs to. Returning an error (or panicking) fails the job.
type JobFunc func(ctx context.Context, self *Job) error

// Job is a single unit of deferred work with dependencies, a priority and a
// status. Identity is the pointer: two jobs are equal only if they are the
// same *Job.
//
// Dependencies are frozen at construction. A job may be built on top of
// dependencies that are already terminal; scheduling it later still works.
type Job struct {
	name string
	fn   JobFunc
	deps map[*Job]struct{}

	// requested priority, assigned by Schedule
	priority atomic.Int64

	status  atomic.Int32
	waiters atomic.Int32
	loader  atomic.Pointer[AsyncLoader]

	// finished is closed exactly once, when the job turns terminal.
	finished chan struct{}

	// Guarded by the owning loader's mutex.
	failure *Error
	revDeps map[*Job]struct{}
}

// NewJob constructs a pending job named name that runs fn once every job in
// deps has succeeded. Duplicate and nil entries in deps are ignored. The
// job has priority 0 until it is scheduled.
func NewJob(deps []*Job, name string, fn JobFunc) *Job {
	j := &Job{
		name:     name,
		fn:       fn,
		deps:     make(map[*Job]struct{}, len(deps)),
		finished: make(chan struct{}),
	}
	for _, d := range deps {
		if d != nil {
			j.deps[d] = struct{}{}
		}
	}
	return j
}

// Name returns the diagnostic name given to NewJob.
func (j *Job) Name() string {
	return j.name
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	return Status(j.status.Load())
}

// Priority returns the job's requested priority, as set by Schedule. Larger
// means higher. Inherited boosts raise only the effective priority used for
// dispatch ordering; they are not visible here.
func (j *Job) Priority() int {
	return int(j.priority.Load())
}

// WaitersCount reports how many callers are currently blocked in Wait (or
// in Task.Remove) on this job.
func (j *Job) WaitersCount() int {
	return int(j.waiters.Load())
}

// Dependencies returns the job's dependency set as a fresh slice, in no
// particular order.
func (j *Job) Dependencies() []*Job {
	out := make([]*Job, 0, len(j.deps))
	for d := range j.deps {
		out = append(out, d)
	}
	return out
}

// Wait blocks until the job is terminal. It returns nil after SUCCESS and
// the job's failure record after FAILED; every waiter observes the same
// code and message. Waiting on a terminal job returns immediately.
//
// If the waiter carries an ambient priority — it runs inside another job's
// function, or the context passed through WithAmbientPriority — a pending
// job (and, transitively, its unresolved dependencies) is boosted to at
// least that priority before blocking.
//
// A context cancellation aborts only the wait, never the job.
func (j *Job) Wait(ctx context.Context) error {
	if j.Status() == StatusPending {
		if l := j.loader.Load(); l != nil {
			l.boostForWait(ctx, j)
		}
		j.waiters.Add(1)
		select {
		case <-j.finished:
			j.waiters.Add(-1)
		case <-ctx.Done():
			j.waiters.Add(-1)
			return ctx.Err()
		}
	}
	// The close of j.finished orders the failure write before this read.
	if j.failure != nil {
		return j.failure
	}
	return nil
}
