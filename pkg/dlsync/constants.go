package dlsync

import "time"

// Exit codes for semantic error classification.
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error
//   - 3+: Application-specific errors
const (
	ExitSuccess            = 0  // Command completed successfully
	ExitGeneralError       = 1  // Unknown or unclassified error
	ExitUsageError         = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic              = 3  // Internal panic (unexpected crash)
	ExitConfigError        = 10 // Invalid configuration or parameters
	ExitConnectionError    = 11 // Failed to connect to database
	ExitApprovalDenied     = 12 // User denied rollback approval
	ExitExecutionFailed    = 13 // SQL execution failed
	ExitParseError         = 14 // Script tree could not be parsed or ordered
	ExitImmutableMigration = 15 // Deployed migration version was modified
	ExitVerificationFailed = 16 // One or more scripts failed verification
)

const (
	// DefaultProfile is the parameter profile used when none is configured.
	DefaultProfile = "dev"

	// ConfigFileName is the project configuration file at the script root.
	ConfigFileName = "config.yaml"

	// LineageFileName holds manually declared dependencies at the script root.
	LineageFileName = "lineage_config.txt"

	// ParameterFilePattern names the per-profile parameter file at the script root.
	ParameterFilePattern = "parameter-%s.properties"

	// ScriptExtension is the file extension of script files.
	ScriptExtension = ".sql"

	// DefaultForceApprovalCountdown is the countdown duration before a forced rollback proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxErrorPreviewLength is the maximum number of characters of a failed
	// statement shown in error messages.
	MaxErrorPreviewLength = 200

	// DefaultHistorySchema is the schema holding the history tables in the target database.
	DefaultHistorySchema = "dlsync"
)
