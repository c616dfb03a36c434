package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/dlsync/internal/config"
	"github.com/vvka-141/dlsync/internal/dependency"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// ChangeManager runs the deploy, rollback, verify, create-scripts and
// create-lineage workflows. Each workflow opens a sync record and closes it with
// exactly one terminal status.
//
// Thread-Safety: NOT safe for concurrent workflow calls on the same instance.
type ChangeManager struct {
	config   *config.ProjectConfig
	source   dlsync.ScriptSource
	repo     dlsync.ScriptRepository
	injector dlsync.ParameterInjector
	approver dlsync.Approver
	logger   dlsync.Logger
	target   string
}

// NewChangeManager creates a ChangeManager. target names the database users
// confirm before a rollback. A nil cfg behaves like an empty config.yaml.
// Panics on nil collaborators.
func NewChangeManager(
	cfg *config.ProjectConfig,
	source dlsync.ScriptSource,
	repo dlsync.ScriptRepository,
	injector dlsync.ParameterInjector,
	approver dlsync.Approver,
	logger dlsync.Logger,
	target string,
) *ChangeManager {
	if source == nil {
		panic("source cannot be nil")
	}
	if repo == nil {
		panic("repo cannot be nil")
	}
	if injector == nil {
		panic("injector cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg == nil {
		cfg = &config.ProjectConfig{}
	}
	return &ChangeManager{
		config:   cfg,
		source:   source,
		repo:     repo,
		injector: injector,
		approver: approver,
		logger:   logger,
		target:   target,
	}
}

// Deploy applies every changed script in dependency order. With onlyHashes the
// hashes are recorded without executing anything.
func (m *ChangeManager) Deploy(ctx context.Context, onlyHashes bool) error {
	return m.run(ctx, dlsync.ChangeDeploy, func(ctx context.Context) (int64, error) {
		mode := "scripts"
		if onlyHashes {
			mode = "hashes only"
		}
		m.logger.Info("Deploying %s", mode)

		ordered, err := m.Plan(ctx)
		if err != nil {
			return 0, err
		}

		m.logger.Info("Deploying %d change scripts", len(ordered))
		for i, script := range ordered {
			m.logger.Info("%d of %d: Deploying %s", i+1, len(ordered), script)
			m.injector.Inject(script)
			if err := m.repo.ApplyScript(ctx, script, onlyHashes); err != nil {
				return 0, err
			}
		}

		m.logger.Info("✓ Deployed %d scripts", len(ordered))
		return int64(len(ordered)), nil
	})
}

// Plan returns the scripts Deploy would apply, in order, without applying them.
// It fails when a changed migration version is already deployed.
func (m *ChangeManager) Plan(ctx context.Context) ([]*dlsync.Script, error) {
	hashes, err := m.repo.LoadScriptHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployed hashes: %w", err)
	}
	scripts, err := m.source.ListScripts(ctx)
	if err != nil {
		return nil, err
	}

	var changed []*dlsync.Script
	for _, s := range scripts {
		if m.config.IsScriptExcluded(s) {
			m.logger.Verbose("Skipping excluded script %s", s)
			continue
		}
		if hashes[s.ID()] != s.Hash() {
			changed = append(changed, s)
		}
	}

	ordered, err := m.order(changed)
	if err != nil {
		return nil, err
	}
	if err := m.checkImmutable(ctx, ordered); err != nil {
		return nil, err
	}
	return ordered, nil
}

// checkImmutable rejects the whole run before anything executes.
func (m *ChangeManager) checkImmutable(ctx context.Context, scripts []*dlsync.Script) error {
	var violations []string
	for _, s := range scripts {
		if !s.IsMigration() {
			continue
		}
		deployed, err := m.repo.IsDeployed(ctx, s)
		if err != nil {
			return err
		}
		if deployed {
			m.logger.Error("Migration %s changed after it was deployed", s)
			violations = append(violations, s.ID())
		}
	}
	if len(violations) > 0 {
		return &ImmutabilityError{ScriptIDs: violations}
	}
	return nil
}

// Rollback reverts deployed migrations whose scripts were removed from the
// source, dependents first.
func (m *ChangeManager) Rollback(ctx context.Context) error {
	return m.run(ctx, dlsync.ChangeRollback, func(ctx context.Context) (int64, error) {
		hashes, err := m.repo.LoadScriptHashes(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to load deployed hashes: %w", err)
		}
		scripts, err := m.source.ListScripts(ctx)
		if err != nil {
			return 0, err
		}
		for _, s := range scripts {
			delete(hashes, s.ID())
		}
		removed := make([]string, 0, len(hashes))
		for id := range hashes {
			removed = append(removed, id)
		}
		sort.Strings(removed)

		migrations, err := m.repo.GetMigrationScripts(ctx, removed)
		if err != nil {
			return 0, err
		}
		if len(migrations) == 0 {
			m.logger.Info("Nothing to roll back")
			return 0, nil
		}

		ordered, err := m.orderRecorded(migrations)
		if err != nil {
			return 0, err
		}
		if err := m.approve(ctx, ordered); err != nil {
			return 0, err
		}

		for i := len(ordered) - 1; i >= 0; i-- {
			script := ordered[i]
			m.logger.Info("%d of %d: Rolling back %s", len(ordered)-i, len(ordered), script)
			m.injector.InjectAll(script)
			if err := m.repo.ApplyRollback(ctx, script); err != nil {
				return 0, err
			}
		}

		m.logger.Info("✓ Rolled back %d migrations", len(ordered))
		return int64(len(ordered)), nil
	})
}

func (m *ChangeManager) approve(ctx context.Context, scripts []*dlsync.Script) error {
	var summary strings.Builder
	fmt.Fprintf(&summary, "Rolling back %d migrations on %s:", len(scripts), m.target)
	for i := len(scripts) - 1; i >= 0; i-- {
		fmt.Fprintf(&summary, "\n  %s", scripts[i].ID())
	}

	approved, err := m.approver.RequestApproval(ctx, m.target, summary.String())
	if err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}
	if !approved {
		return dlsync.ErrApprovalDenied
	}
	return nil
}

// Verify checks the newest version of every migration object and every live
// state object. All objects are checked before a failure is reported.
func (m *ChangeManager) Verify(ctx context.Context) error {
	return m.run(ctx, dlsync.ChangeVerify, func(ctx context.Context) (int64, error) {
		scripts, err := m.source.ListScripts(ctx)
		if err != nil {
			return 0, err
		}

		var included []*dlsync.Script
		for _, s := range scripts {
			if !m.config.IsScriptExcluded(s) {
				included = append(included, s)
			}
		}

		failed := 0
		check := func(s *dlsync.Script) {
			ok, err := m.repo.RunVerify(ctx, s)
			switch {
			case err != nil:
				failed++
				m.logger.Error("✗ Verification of %s failed: %v", s, err)
			case !ok:
				failed++
				m.logger.Error("✗ Verification of %s failed", s)
			default:
				m.logger.Verbose("✓ Verified %s", s)
			}
		}

		for _, s := range latestMigrations(included) {
			m.injector.InjectAll(s)
			check(s)
		}

		schemas, err := m.repo.ListSchemas(ctx)
		if err != nil {
			return 0, err
		}
		for _, schema := range schemas {
			live, err := m.repo.ListObjectsInSchema(ctx, schema)
			if err != nil {
				return 0, err
			}
			for _, s := range live {
				if s.IsMigration() {
					continue
				}
				m.injector.Parametrize(s)
				if m.config.IsScriptExcluded(s) {
					m.logger.Verbose("Skipping excluded script %s", s)
					continue
				}
				check(s)
			}
		}

		if failed > 0 {
			return 0, &VerificationError{Failed: failed}
		}
		m.logger.Info("✓ All scripts verified")
		return int64(len(included)), nil
	})
}

// latestMigrations returns the highest version of each migration object,
// ordered by object ID.
func latestMigrations(scripts []*dlsync.Script) []*dlsync.Script {
	latest := make(map[string]*dlsync.Script)
	for _, s := range scripts {
		if !s.IsMigration() {
			continue
		}
		if cur, ok := latest[s.ObjectID()]; !ok || s.Version() > cur.Version() {
			latest[s.ObjectID()] = s
		}
	}

	out := make([]*dlsync.Script, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID() < out[j].ObjectID() })
	return out
}

// CreateScripts reverse engineers the live objects of schemas into the source
// tree. No schemas means all of them.
func (m *ChangeManager) CreateScripts(ctx context.Context, schemas []string) error {
	return m.run(ctx, dlsync.ChangeCreateScript, func(ctx context.Context) (int64, error) {
		configTables := m.injector.InjectNames(m.config.ConfigTables)

		if len(schemas) == 0 {
			all, err := m.repo.ListSchemas(ctx)
			if err != nil {
				return 0, err
			}
			schemas = all
		}
		m.logger.Info("Creating scripts for schemas: %s", strings.Join(schemas, ", "))

		var count int64
		for _, schema := range schemas {
			scripts, err := m.repo.ListObjectsInSchema(ctx, schema)
			if err != nil {
				return 0, err
			}
			for _, s := range scripts {
				count++
				if config.IsConfigTable(configTables, s.FullObjectName()) {
					if err := m.repo.AddConfig(ctx, s); err != nil {
						return 0, err
					}
				}
				m.injector.Parametrize(s)
			}
			if err := m.source.WriteScripts(ctx, scripts); err != nil {
				return 0, err
			}
		}

		m.logger.Info("✓ Created %d scripts", count)
		return count, nil
	})
}

// CreateLineage stores the dependency edges of the source tree, including
// overrides and manually declared lineage.
func (m *ChangeManager) CreateLineage(ctx context.Context) error {
	return m.run(ctx, dlsync.ChangeCreateLineage, func(ctx context.Context) (int64, error) {
		scripts, err := m.source.ListScripts(ctx)
		if err != nil {
			return 0, err
		}
		manual, err := m.source.ReadManualDependencies(ctx, scripts)
		if err != nil {
			return 0, err
		}

		g := m.newGraph()
		g.AddNodes(scripts)
		for _, d := range manual {
			g.AddDependency(d, dependency.EdgeManual)
		}

		deps := g.Dependencies()
		if err := m.repo.InsertDependencies(ctx, deps); err != nil {
			return 0, err
		}
		m.logger.Info("✓ Stored %d lineage edges", len(deps))
		return int64(len(deps)), nil
	})
}

func (m *ChangeManager) newGraph() *dependency.Graph {
	g := dependency.NewGraph(m.logger)
	for _, o := range m.config.Overrides() {
		g.AddObjectDependency(o[0], o[1], dependency.EdgeOverride)
	}
	return g
}

func (m *ChangeManager) order(scripts []*dlsync.Script) ([]*dlsync.Script, error) {
	g := m.newGraph()
	g.AddNodes(scripts)
	return g.TopologicalSort()
}

// orderRecorded sorts scripts rebuilt from history. Their content was stored
// after injection while their identity is in template form, so references are
// resolved on parametrized copies and the recorded scripts are returned.
func (m *ChangeManager) orderRecorded(scripts []*dlsync.Script) ([]*dlsync.Script, error) {
	recorded := make(map[*dlsync.Script]*dlsync.Script, len(scripts))
	templates := make([]*dlsync.Script, len(scripts))
	for i, s := range scripts {
		t := s.Clone()
		m.injector.Parametrize(t)
		templates[i] = t
		recorded[t] = s
	}

	sorted, err := m.order(templates)
	if err != nil {
		return nil, err
	}
	ordered := make([]*dlsync.Script, len(sorted))
	for i, t := range sorted {
		ordered[i] = recorded[t]
	}
	return ordered, nil
}

// run wraps a workflow in its sync record. The terminal record is written even
// when ctx was cancelled.
func (m *ChangeManager) run(ctx context.Context, changeType dlsync.ChangeType, workflow func(context.Context) (int64, error)) error {
	if err := m.repo.RecordSyncStart(ctx, changeType); err != nil {
		return fmt.Errorf("failed to record %s start: %w", changeType, err)
	}

	count, err := workflow(ctx)
	if err != nil {
		m.logger.Error("%s failed: %v", changeType, err)
		if endErr := m.repo.RecordSyncEnd(context.WithoutCancel(ctx), changeType, dlsync.StatusError, err.Error(), 0); endErr != nil {
			m.logger.Error("Failed to record %s failure: %v", changeType, endErr)
		}
		return err
	}

	return m.repo.RecordSyncEnd(ctx, changeType, dlsync.StatusSuccess, fmt.Sprintf("Successfully completed %s", changeType), count)
}
