package dependency

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// CycleError reports scripts that depend on each other in a loop.
// Cycle lists script IDs along the loop, starting and ending with the same ID.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " → "))
}

// Unwrap lets errors.Is match dlsync.ErrDependencyCycle.
func (e *CycleError) Unwrap() error {
	return dlsync.ErrDependencyCycle
}
