// Package loader implements a dependency-aware asynchronous job loader.
//
// Callers build Jobs with NewJob, hand batches of them to an AsyncLoader
// with Schedule, and either wait on individual jobs or on the loader as a
// whole. The loader tracks the dependency graph, dispatches jobs whose
// dependencies have all succeeded to a bounded worker pool in priority
// order, and propagates failures and cancellations to dependent jobs.
//
// A single mutex guards all scheduler state; job functions run without it.
package loader
