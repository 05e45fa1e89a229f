package matrix

import (
	"log/slog"
	"runtime"
)

type options struct {
	workers int
	logger  *slog.Logger
}

// Option configures a Builder or Generate.
type Option func(*options)

// WithWorkers bounds how many oracle calls run at once during one addition.
// Values below one select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger for build diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func gatherOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}
