package datasource

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/golang/glog"
)

// guardHostCallback runs a host-supplied callback (children-changed
// listener, fetch-request listener) and recovers any panic it raises so a
// misbehaving host callback cannot corrupt provider state or propagate out
// of ProcessUpdate/Ensure. Adapted from the teacher's connect/trace.go
// HandleError, narrowed to the one thing this package needs it for.
func guardHostCallback(tag string, do func()) {
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("host callback %s panicked: %s", tag, errorJSON(r, debug.Stack()))
		}
	}()
	do()
}

func errorJSON(err any, stack []byte) string {
	stackLines := []string{}
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			stackLines = append(stackLines, line)
		}
	}
	b, _ := json.Marshal(map[string]any{
		"error": fmt.Sprintf("%v", err),
		"stack": stackLines,
	})
	return string(b)
}
