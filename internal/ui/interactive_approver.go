package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// InteractiveApprover asks the user to type the target name before a
// destructive operation proceeds.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates an InteractiveApprover on stdin and stderr.
func NewInteractiveApprover(verbose bool) dlsync.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

// RequestApproval prints the summary and approves only when the typed line
// matches target.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, target, summary string) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to roll back migrations on '%s'\n", target)
	if summary != "" {
		fmt.Fprintln(a.output, summary)
	}
	fmt.Fprintln(a.output, "Rollback statements can permanently delete data!")
	fmt.Fprintf(a.output, "\nTo confirm, type the database name '%s' and press Enter: ", target)

	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case typed := <-inputChan:
		if typed == target {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with rollback...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match database name '%s'. Operation cancelled.\n", typed, target)
		return false, nil
	}
}

var _ dlsync.Approver = (*InteractiveApprover)(nil)
