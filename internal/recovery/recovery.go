// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/ColonelBlimp/morsetrainer/internal/logger"
)

// Replaced in tests
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It reports the panic to stderr and the log file, then exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc reports the panic and runs cleanup before exiting. Use it
// in goroutines that own a device or a terminal which must be restored.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

func report(r any) {
	stack := debug.Stack()
	_, _ = fmt.Fprintf(stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
	logger.Logger.Errorw("panic", "value", fmt.Sprint(r), "stack", string(stack))
	logger.Sync()
}
