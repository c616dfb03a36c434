package dlsync

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes callers need to tell apart.
// Typed errors in the parser, dependency and services packages unwrap to these,
// so errors.Is works regardless of how much context was added on the way up.
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrParse indicates a script file or DDL batch could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrImmutableMigration indicates a change to a migration version that is already deployed.
	ErrImmutableMigration = errors.New("deployed migration is immutable")

	// ErrDependencyCycle indicates the dependency graph contains a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrVerificationFailed indicates one or more scripts failed verification.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrMissingRollback indicates a migration that must be rolled back has no rollback statement.
	ErrMissingRollback = errors.New("missing rollback")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrExecutionFailed indicates SQL execution failed.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// ExitCodeForError returns the process exit code for an error.
// Returns ExitSuccess for nil, a semantic code for known errors
// and ExitGeneralError for everything else.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrParse):
		return ExitParseError
	case errors.Is(err, ErrDependencyCycle):
		return ExitParseError
	case errors.Is(err, ErrImmutableMigration):
		return ExitImmutableMigration
	case errors.Is(err, ErrVerificationFailed):
		return ExitVerificationFailed
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrMissingRollback):
		return ExitExecutionFailed
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError matches the messages cobra produces for command line misuse.
func isUsageError(msg string) bool {
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "invalid argument", "required flag"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return strings.Contains(msg, "arg(s), received")
}
