package debug

import (
	"fmt"
	"os"
)

var enabled = os.Getenv("MLMD_DEBUG") != ""

// Enabled reports whether MLMD_DEBUG diagnostic logging is on.
func Enabled() bool {
	return enabled
}

// Logf writes a diagnostic line to stderr when MLMD_DEBUG is set. Used for
// low-volume internal traces: retry attempts, schema bootstrap steps,
// connection lifecycle events.
func Logf(format string, args ...interface{}) {
	if enabled {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
