package helper

import (
	"fmt"
	"runtime/debug"

	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// RecoverPanic turns a panic into an error so the process still exits
// non-zero through the normal path and the stack reaches the log.
// Usage: defer helper.RecoverPanic(logger, "install", &err)
func RecoverPanic(log *logger.Logger, name string, errp *error) {
	if r := recover(); r != nil {
		log.Errorf("PANIC recovered in %s: %v\nStack: %s", name, r, debug.Stack())
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", name, r)
		}
	}
}
