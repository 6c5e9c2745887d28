package loader

import "context"

type executingJobKey struct{}

type ambientPriorityKey struct{}

// withExecutingJob marks ctx as belonging to a worker currently running j.
// Waits made with this context inherit j's effective priority.
func withExecutingJob(ctx context.Context, j *Job) context.Context {
	return context.WithValue(ctx, executingJobKey{}, j)
}

func executingJobFrom(ctx context.Context) *Job {
	j, _ := ctx.Value(executingJobKey{}).(*Job)
	return j
}

// WithAmbientPriority returns a context whose Wait calls boost pending jobs
// (and their unresolved dependencies) to at least the given priority. This
// is how a caller outside the worker pool expresses how urgently it is
// waiting; inside a job function the executing job's priority is used
// instead and this value is ignored.
func WithAmbientPriority(ctx context.Context, priority int) context.Context {
	return context.WithValue(ctx, ambientPriorityKey{}, priority)
}

func ambientPriorityFrom(ctx context.Context) (int, bool) {
	p, ok := ctx.Value(ambientPriorityKey{}).(int)
	return p, ok
}
