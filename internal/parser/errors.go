package parser

import (
	"fmt"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ParseError describes a script that could not be parsed.
// It unwraps to dlsync.ErrParse.
type ParseError struct {
	Path    string // File the text came from ("" when unknown)
	Line    int    // Line number (0 if unknown)
	Message string // Primary error message
	Hint    string // Actionable suggestion for fixing
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	location := e.Path
	if e.Line > 0 {
		if location == "" {
			location = fmt.Sprintf("line %d", e.Line)
		} else {
			location = fmt.Sprintf("%s (line %d)", location, e.Line)
		}
	}

	msg := "parse error: " + e.Message
	if location != "" {
		msg = fmt.Sprintf("parse error in %s: %s", location, e.Message)
	}
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match dlsync.ErrParse.
func (e *ParseError) Unwrap() error {
	return dlsync.ErrParse
}
