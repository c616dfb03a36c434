package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/dlsync/internal/logging"
	"github.com/vvka-141/dlsync/internal/tui"
	"github.com/vvka-141/dlsync/internal/ui"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy changed scripts in dependency order",
	Long: `Deploy applies every script whose content differs from the deployed hash.

State scripts are redeployed in full. Migration versions are applied once each;
changing a version that is already deployed fails the run before anything
executes. Scripts are applied dependencies first.

Examples:
  # Deploy the tree in the current directory
  dlsync deploy -d analytics

  # Deploy with the prod profile and an explicit parameter
  dlsync deploy --script-root ./db --profile prod --param DB=ANALYTICS

  # Adopt an existing database: record hashes without executing
  dlsync deploy --only-hashes`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back deployed migrations removed from the script tree",
	Long: `Rollback reverts deployed migration versions whose scripts no longer exist
in the tree, dependents first, using their ---rollback statements.

The target database name must be typed to confirm unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runRollback,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the deployed state against the script tree",
	Long: `Verify runs the ---verify statement of the newest version of every migration
object. A migration without a verify statement passes.

State objects (views, functions, procedures, ...) are checked for tracking only:
every live state object must have a deployment history entry. Their live
definitions are not compared with the script tree, so a definition changed
directly in the database still passes; run deploy to re-apply the tree.

All objects are checked before failures are reported.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var createScriptCmd = &cobra.Command{
	Use:   "create-script",
	Short: "Reverse engineer live objects into script files",
	Long: `Create-script reads the definitions of live objects and writes them to the
script tree with parameter values replaced by their placeholders. Rows of
tables listed under configTables are added as INSERT statements.`,
	Args: cobra.NoArgs,
	RunE: runCreateScript,
}

var createLineageCmd = &cobra.Command{
	Use:   "create-lineage",
	Short: "Store the dependency lineage of the script tree",
	Args:  cobra.NoArgs,
	RunE:  runCreateLineage,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the scripts deploy would apply, without applying them",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs recorded in the history store",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

type commandFlagValues struct {
	onlyHashes bool
	force      bool
	schemas    []string
	limit      int
}

var commandFlags commandFlagValues

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	}

	rootCmd.AddCommand(deployCmd, rollbackCmd, verifyCmd, createScriptCmd, createLineageCmd, planCmd, historyCmd)

	deployCmd.Flags().BoolVar(&commandFlags.onlyHashes, "only-hashes", false,
		"Record script hashes without executing anything")
	rollbackCmd.Flags().BoolVar(&commandFlags.force, "force", false,
		"Skip the interactive confirmation (a short countdown is shown instead)")
	createScriptCmd.Flags().StringSliceVar(&commandFlags.schemas, "schemas", nil,
		"Schemas to reverse engineer (default: all user schemas)")
	historyCmd.Flags().IntVar(&commandFlags.limit, "limit", 10, "Number of runs to show")
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		return w.manager.Deploy(ctx, commandFlags.onlyHashes)
	})
}

func runRollback(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		return w.manager.Rollback(ctx)
	})
}

func runVerify(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		return w.manager.Verify(ctx)
	})
}

func runCreateScript(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		return w.manager.CreateScripts(ctx, commandFlags.schemas)
	})
}

func runCreateLineage(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		if err := w.manager.CreateLineage(ctx); err != nil {
			return err
		}
		if !w.cfg.Verbose {
			return nil
		}
		edges, err := w.store.Lineage(ctx)
		if err != nil {
			return err
		}
		newRenderer().Lineage(edges)
		return nil
	})
}

func runPlan(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		scripts, err := w.manager.Plan(ctx)
		if err != nil {
			return err
		}
		newRenderer().Plan(w.target, scripts)
		return nil
	})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return withWorkspace(cmd, func(ctx context.Context, w *workspace) error {
		if commandFlags.limit < 1 {
			return fmt.Errorf("%w: --limit must be positive", dlsync.ErrInvalidConfig)
		}
		records, err := w.store.Syncs(ctx, commandFlags.limit)
		if err != nil {
			return err
		}
		newRenderer().Syncs(records)
		return nil
	})
}

func newRenderer() *tui.Renderer {
	return tui.NewRenderer(os.Stdout, tui.IsInteractive())
}

func approverFor(force, verbose bool) dlsync.Approver {
	if force {
		return ui.NewForcedApprover(verbose)
	}
	return ui.NewInteractiveApprover(verbose)
}

// loadRunConfig resolves the settings of cmd into a RunConfig.
func loadRunConfig(cmd *cobra.Command) (*dlsync.RunConfig, error) {
	configPath, _ := cmd.Flags().GetString("config")
	settings, err := LoadSettings(cmd.Flags(), configPath)
	if err != nil {
		return nil, err
	}
	return settings.RunConfig(os.Getenv)
}

// withWorkspace runs fn against a freshly opened workspace under the command
// timeout. SIGINT and SIGTERM cancel the context.
func withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, w *workspace) error) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.NewConsoleLogger(cfg.Verbose || getVerboseFlag(cmd))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	w, err := openWorkspace(ctx, cfg, approverFor(commandFlags.force, cfg.Verbose), logger)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Verbose("Running %s against %s", cmd.Name(), w.target)
	return fn(ctx, w)
}
