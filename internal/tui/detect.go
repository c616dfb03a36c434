package tui

import (
	"os"

	"golang.org/x/term"
)

// NonInteractiveEnv forces non-interactive mode when set to "1".
const NonInteractiveEnv = "DLSYNC_NON_INTERACTIVE"

// Mode is the interaction mode of a run.
type Mode int

const (
	// ModeNonInteractive covers CI pipelines, scripts and piped output.
	ModeNonInteractive Mode = iota
	// ModeInteractive means a person is at the terminal.
	ModeInteractive
)

// DetectMode reports ModeNonInteractive when DLSYNC_NON_INTERACTIVE=1, CI or
// NO_COLOR is set, or stdin or stdout is not a terminal.
func DetectMode() Mode {
	return detectMode(os.Getenv, term.IsTerminal, int(os.Stdin.Fd()), int(os.Stdout.Fd()))
}

func detectMode(getenv func(string) string, isTerminal func(int) bool, fds ...int) Mode {
	if getenv(NonInteractiveEnv) == "1" || getenv("CI") != "" || getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}
	for _, fd := range fds {
		if !isTerminal(fd) {
			return ModeNonInteractive
		}
	}
	return ModeInteractive
}

// IsInteractive reports whether plans and prompts can use color and a terminal.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
