package dlsync

import "context"

// Approver confirms destructive operations before they run.
//
// Implementations:
//   - ForcedApprover: shows a countdown and approves
//   - InteractiveApprover: asks the user to type the target name
type Approver interface {
	// RequestApproval asks for confirmation of the operation described by summary.
	// target is the name the user must confirm, usually the database name.
	RequestApproval(ctx context.Context, target, summary string) (bool, error)
}
