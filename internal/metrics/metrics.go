// Package metrics provides the opaque counter handles the loader uses for
// thread-count observability. The host supplies the gauges; the loader only
// increments and decrements them.
package metrics

import "sync/atomic"

// Gauge is an up/down counter handle.
//
// Implementations must be safe for concurrent use; all methods are expected
// to be lightweight and non-blocking.
type Gauge interface {
	// Inc increments the gauge by one.
	Inc()

	// Dec decrements the gauge by one.
	Dec()

	// Value returns the current reading. Intended for cold-path
	// observation.
	Value() int64
}

// AtomicGauge is a lock-free Gauge backed by an atomic counter. The zero
// value is ready to use.
type AtomicGauge struct {
	v atomic.Int64
}

func (g *AtomicGauge) Inc() {
	g.v.Add(1)
}

func (g *AtomicGauge) Dec() {
	g.v.Add(-1)
}

// Value returns the current reading.
func (g *AtomicGauge) Value() int64 {
	return g.v.Load()
}
