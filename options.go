package tasty

import (
	"runtime"
	"time"
)

// Timeout bounds the running time of every test body in a run. Label is the
// human-readable rendering used in failure descriptions; when empty, the
// duration's own formatting is used.
type Timeout struct {
	Duration time.Duration
	Label    string
}

func (t Timeout) label() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Duration.String()
}

// Options configures one run.
type Options struct {
	// Workers is the number of tests executed concurrently. Zero or negative
	// selects the default.
	Workers int
	// Timeout, when non-nil, applies to every test body. Acquire and release
	// steps are not covered by it.
	Timeout *Timeout
}

// DefaultWorkers is the worker count used when Options.Workers is not positive.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	return o
}
