// Package logging wires the structured logger shared by every component.
package logging

import (
	"io"
	"os"

	"github.com/go-kratos/kratos/v2/log"
)

// New returns a leveled key/value logger writing to stdout.
func New(service, level string) log.Logger {
	return NewWithWriter(os.Stdout, service, level)
}

func NewWithWriter(w io.Writer, service, level string) log.Logger {
	logger := log.With(log.NewStdLogger(w),
		"ts", log.DefaultTimestamp,
		"service", service,
	)
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(level)))
}

// Discard is used by tests and by components constructed without a logger.
func Discard() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// Helper returns a helper for logger, or for Discard when logger is nil.
func Helper(logger log.Logger, module string) *log.Helper {
	if logger == nil {
		logger = Discard()
	}
	return log.NewHelper(log.With(logger, "module", module))
}
