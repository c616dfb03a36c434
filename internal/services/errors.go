package services

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ImmutabilityError lists deployed migration versions whose content changed.
type ImmutabilityError struct {
	ScriptIDs []string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("migration scripts changed after deployment: %s (add a new ---version block instead)",
		strings.Join(e.ScriptIDs, ", "))
}

func (e *ImmutabilityError) Unwrap() error {
	return dlsync.ErrImmutableMigration
}

// VerificationError reports how many scripts failed to verify.
type VerificationError struct {
	Failed int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%d scripts failed to verify.", e.Failed)
}

func (e *VerificationError) Unwrap() error {
	return dlsync.ErrVerificationFailed
}
