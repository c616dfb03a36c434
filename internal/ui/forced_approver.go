package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ForcedApprover approves without input after a short countdown. It is used
// when --force is given.
type ForcedApprover struct {
	verbose   bool
	countdown time.Duration
	output    io.Writer
	sleepFn   func(time.Duration)
}

// NewForcedApprover creates a ForcedApprover writing to stderr.
func NewForcedApprover(verbose bool) dlsync.Approver {
	return &ForcedApprover{
		verbose:   verbose,
		countdown: dlsync.DefaultForceApprovalCountdown,
		output:    os.Stderr,
		sleepFn:   time.Sleep,
	}
}

// RequestApproval prints the summary, counts down and approves.
func (a *ForcedApprover) RequestApproval(ctx context.Context, target, summary string) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  DANGER: forced rollback on '%s'\n", target)
	if summary != "" {
		fmt.Fprintln(a.output, summary)
	}
	fmt.Fprintln(a.output)

	seconds := int(a.countdown.Seconds())
	if a.countdown == 0 {
		seconds = int(dlsync.DefaultForceApprovalCountdown.Seconds())
	}
	for i := seconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rRolling back in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with rollback...                                   \n")
	return true, nil
}

var _ dlsync.Approver = (*ForcedApprover)(nil)
