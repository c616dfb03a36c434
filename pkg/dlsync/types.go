package dlsync

import (
	"errors"
	"fmt"
	"time"
)

// ChangeType identifies the workflow a sync record belongs to.
type ChangeType string

const (
	ChangeDeploy        ChangeType = "DEPLOY"
	ChangeRollback      ChangeType = "ROLLBACK"
	ChangeVerify        ChangeType = "VERIFY"
	ChangeCreateScript  ChangeType = "CREATE_SCRIPT"
	ChangeCreateLineage ChangeType = "CREATE_LINEAGE"
)

// Status is the lifecycle state of a sync record.
// A record starts IN_PROGRESS and moves to exactly one terminal status.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusError      Status = "ERROR"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ScriptDependency is a directed edge: Dependent must be applied after DependsOn.
type ScriptDependency struct {
	Dependent *Script
	DependsOn *Script
}

func (d ScriptDependency) String() string {
	return fmt.Sprintf("%s -> %s", d.Dependent.FullObjectName(), d.DependsOn.FullObjectName())
}

// RunConfig contains the settings shared by every workflow.
type RunConfig struct {
	// ScriptRoot is the directory holding the DB/SCHEMA/TYPE/NAME.SQL tree
	ScriptRoot string

	// ConnectionString is the target database connection string (URI or key/value format)
	ConnectionString string

	// Profile selects the parameter-<profile>.properties file
	Profile string

	// History selects where deployment history is kept: "postgres" for tables in the
	// target database, otherwise the path of a local sqlite file
	History string

	// HistorySchema is the schema holding the history tables when History is "postgres"
	HistorySchema string

	// Parameters override values loaded from the profile's parameter file
	Parameters map[string]string

	// Timeout is the global timeout for the whole command
	Timeout time.Duration

	// Parallelism bounds the number of files parsed concurrently
	Parallelism int

	// Verbose enables detailed logging
	Verbose bool
}

// HistoryInTarget reports whether history tables live in the target database.
func (c *RunConfig) HistoryInTarget() bool {
	return c.History == "" || c.History == HistoryPostgres
}

// HistoryPostgres selects the target database as the history store.
const HistoryPostgres = "postgres"

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.ScriptRoot == "" {
		errs = append(errs, fmt.Errorf("ScriptRoot is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}
