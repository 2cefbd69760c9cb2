package harness

import (
	"fmt"

	"example.com/quicharness/internal/logger"
)

// Failer is the assertion sink the fixture reports into: wait timeouts,
// unexpected close codes, parameter failures inside getters. The
// hosting test runtime supplies it; the fixture never aborts on its
// own.
type Failer interface {
	Failf(format string, args ...interface{})
}

// FailerFunc adapts a plain function to the Failer interface.
// (*testing.T).Errorf satisfies it directly:
//
//	harness.WithFailer(harness.FailerFunc(t.Errorf))
type FailerFunc func(format string, args ...interface{})

// Failf implements Failer.
func (f FailerFunc) Failf(format string, args ...interface{}) {
	f(format, args...)
}

// loggerFailer is the default sink when the caller supplies none; it
// records failures at error level.
type loggerFailer struct {
	log *logger.Logger
}

func (f loggerFailer) Failf(format string, args ...interface{}) {
	f.log.Error("test failure", logger.LogFields{"failure": fmt.Sprintf(format, args...)})
}
