package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/dlsync/internal/cli"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(dlsync.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(dlsync.ExitCodeForError(err))
	}
}
