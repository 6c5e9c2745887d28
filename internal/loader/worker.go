package loader

import (
	"context"

	"github.com/vk/loadgridgo/internal/ctxlog"
)

// spawnLocked tops up the worker set while queued work outnumbers idle
// workers. Workers are spawned lazily, never beyond maxThreads.
func (l *AsyncLoader) spawnLocked() {
	for l.workers < l.maxThreads && l.ready.Len() > l.idle {
		l.workers++
		l.total.Inc()
		go l.worker()
	}
}

// worker is the processing loop of a single pool thread. It parks on the
// ready condition while the heap is empty, exits after its current job once
// the pool leaves the running state, and never lets a job panic unwind
// through it.
func (l *AsyncLoader) worker() {
	ctx := ctxlog.WithLogger(context.Background(), l.logger)
	l.logger.Debug("Worker started.")

	l.mu.Lock()
	for {
		if l.state != stateRunning {
			break
		}
		j := l.popReadyLocked()
		if j == nil {
			l.idle++
			l.readyCond.Wait()
			l.idle--
			continue
		}
		l.executing[j] = struct{}{}
		prio := l.scheduled[j].effective
		l.mu.Unlock()

		l.logger.Debug("Worker picked up job.", "job", j.name, "priority", prio)
		err := l.runJob(ctx, j)
		if err != nil {
			l.logger.Debug("Job execution failed.", "job", j.name, "error", err)
		} else {
			l.logger.Debug("Job execution succeeded.", "job", j.name)
		}

		l.mu.Lock()
		delete(l.executing, j)
		l.finishLocked(j, err)
	}
	l.workers--
	l.total.Dec()
	l.joinCond.Broadcast()
	l.mu.Unlock()
	l.logger.Debug("Worker finished.")
}

// runJob executes a job function outside the scheduler lock, converting a
// panic into a job failure.
func (l *AsyncLoader) runJob(ctx context.Context, j *Job) (err error) {
	l.active.Inc()
	defer l.active.Dec()
	defer func() {
		if r := recover(); r != nil {
			err = newErrorf(CodeFailed, "load job %q panicked: %v", j.name, r)
		}
	}()
	return j.fn(withExecutingJob(ctx, j), j)
}
