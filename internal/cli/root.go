package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "dlsync",
	Short: "Schema-as-code deployments for PostgreSQL",
	Long: `dlsync keeps a database in step with a tree of SQL scripts.

Scripts live under <script-root>/<DB>/<SCHEMA>/<TYPE>/<NAME>.SQL. State scripts
(views, functions, procedures, ...) hold the full definition of an object and
are redeployed whenever they change. Migration scripts (tables, sequences,
...) hold immutable ---version blocks applied once each. Deployment order is
derived from the references between scripts.

Settings are read from flags, then DLSYNC_* environment variables, then an
optional dlsync.yaml, then defaults. A .env file in the working directory is
loaded first.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied rollback approval
  13 - SQL execution failed
  14 - Script tree could not be parsed or ordered
  15 - Deployed migration version was modified
  16 - One or more scripts failed verification`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints the error it returns.
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	registerSettingsFlags(rootCmd.PersistentFlags())

	_ = rootCmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
	_ = rootCmd.RegisterFlagCompletionFunc("profile", completeProfiles)
	_ = rootCmd.MarkPersistentFlagDirname("script-root")
}

// registerSettingsFlags declares the flags LoadSettings reads.
func registerSettingsFlags(flags *pflag.FlagSet) {
	flags.BoolP("verbose", "v", false, "Enable verbose output for all commands")
	flags.String("config", "", "Settings file (default: ./dlsync.yaml when present)")
	flags.String("script-root", "", "Directory holding the DB/SCHEMA/TYPE/NAME.SQL tree\n(default: current directory, or $DLSYNC_SCRIPT_ROOT)")
	flags.String("profile", "", "Parameter profile selecting parameter-<profile>.properties (default: dev)")
	flags.String("connection", "", "PostgreSQL connection string (URI or key=value format)\n"+
		"Alternative: $DLSYNC_CONNECTION or $DATABASE_URL")
	flags.StringP("host", "H", "", "PostgreSQL server host (default: $PGHOST or localhost)")
	flags.IntP("port", "p", 0, "PostgreSQL server port (default: $PGPORT or 5432)")
	flags.StringP("database", "d", "", "Target database (default: $PGDATABASE)")
	flags.StringP("user", "U", "", "PostgreSQL user (default: $PGUSER)")
	flags.String("sslmode", "", "SSL mode: disable|allow|prefer|require|verify-ca|verify-full")
	flags.String("history", "", "Where deployment history is kept: 'postgres' for tables in the\n"+
		"target database, or the path of a local sqlite file (default: postgres)")
	flags.String("history-schema", "", "Schema holding the history tables in the target database (default: dlsync)")
	flags.StringSlice("param", nil, "Parameter override as key=value (can be specified multiple times)")
	flags.Duration("timeout", 0, "Global timeout for the command (default 10m)")
	flags.Int("parallelism", 0, "Number of script files parsed concurrently (default: number of CPUs)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
