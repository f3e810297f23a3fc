package datasource

import (
	"fmt"

	"github.com/golang/glog"
)

// Logging convention, carried over from the teacher's `connect` package:
// Info:
//     essential events for abnormal behavior. Silent on normal operation.
//     - retries, timeouts, frontier abandonment
// Debug:
//     key events for trace debugging
//     - fetch scheduling decisions, splice outcomes
// Urgent (glog.Error):
//     conditions that should never happen given the invariants in spec.md §3
//     - a splice that would violate contiguity, an unknown direction, etc.
//
// Provider writes all of its own log lines (list creation, fetches,
// timeouts, missing items, splices) through one Info-level LogFunction;
// no call site in this package logs at the Debug level.

const (
	LogLevelUrgent = 0
	LogLevelInfo   = 50
	LogLevelDebug  = 100
)

var GlobalLogLevel = LogLevelInfo

type LogFunction func(string, ...any)

// LogFn returns a LogFunction that only writes through to glog when level is
// at or below GlobalLogLevel, tagging every line with tag.
func LogFn(level int, tag string) LogFunction {
	return func(format string, a ...any) {
		if level <= GlobalLogLevel {
			glog.InfoDepth(1, fmt.Sprintf("%s: %s", tag, fmt.Sprintf(format, a...)))
		}
	}
}

// SubLogFn nests a tag under an existing LogFunction, matching the teacher's
// per-list / per-request sub-tagging (e.g. "provider" -> "provider[listId]").
func SubLogFn(level int, log LogFunction, tag string) LogFunction {
	return func(format string, a ...any) {
		if level <= GlobalLogLevel {
			log("%s: %s", tag, fmt.Sprintf(format, a...))
		}
	}
}
