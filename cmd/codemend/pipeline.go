package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/codemend/codemend/pkg/clock"
	"github.com/codemend/codemend/pkg/cluster"
	"github.com/codemend/codemend/pkg/config"
	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/dispatch"
	"github.com/codemend/codemend/pkg/logger"
	"github.com/codemend/codemend/pkg/merge"
	"github.com/codemend/codemend/pkg/notify"
	"github.com/codemend/codemend/pkg/oracle"
	"github.com/codemend/codemend/pkg/predict"
	"github.com/codemend/codemend/pkg/workflow"
	"github.com/codemend/codemend/pkg/workspace"
)

// pipeline bundles the wired components for one repository.
type pipeline struct {
	controller *workflow.Controller
	workspaces *workspace.Manager
	oracle     *oracle.Client
}

// buildPipeline wires every stage against the repository at root. The
// caller must call close when done.
func buildPipeline(cfg *config.Config, log *logger.Logger, root string) (*pipeline, error) {
	clk := clock.NewRealClock()

	manager, err := workspace.NewManager(root, cfg.Workspaces.MaxWorktrees, clk, log)
	if err != nil {
		return nil, err
	}

	runToken := uuid.NewString()
	client := oracle.NewClient(cfg.ToOracleConfig(), runToken, clk, log)
	provider := diagnostics.NewRuffProvider("", log)
	store := workflow.OSStore{Root: root}

	dispatcher, err := dispatch.NewDispatcher(
		client,
		workspacePool{manager},
		provider,
		cfg.ToDispatchConfig(),
		clk,
		log,
	)
	if err != nil {
		return nil, err
	}

	merger := merge.NewEngine(
		cfg.ToMergeStrategy(),
		&oracleMergeAdapter{client: client, store: store, root: root},
		log,
	)

	controller, err := workflow.NewController(workflow.Params{
		Provider:      provider,
		Clusterer:     cluster.NewEngine(cfg.ToClusterConfig(), log),
		Fixer:         predict.NewFixer(cfg.ToPredictConfig(), log),
		Dispatcher:    dispatcher,
		Merger:        merger,
		Store:         store,
		Notifier:      notify.NewNotifier(notify.Config{Enabled: cfg.Notifications.Enabled}),
		MaxIterations: cfg.Iterations.Max,
		Clock:         clk,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	return &pipeline{
		controller: controller,
		workspaces: manager,
		oracle:     client,
	}, nil
}

func (p *pipeline) close() {
	p.workspaces.DisposeAll()
}

// workspacePool adapts the workspace manager to the dispatcher's provider
// contract.
type workspacePool struct {
	manager *workspace.Manager
}

func (p workspacePool) Acquire(ctx context.Context, fingerprint string) (dispatch.Workspace, error) {
	return p.manager.Acquire(ctx, fingerprint)
}

// oracleMergeAdapter lets the merge engine escalate conflicts to the
// oracle, which edits the canonical file in place.
type oracleMergeAdapter struct {
	client *oracle.Client
	store  workflow.OSStore
	root   string
}

func (a *oracleMergeAdapter) MergeFile(ctx context.Context, file string, base string, versions []merge.Version) (string, error) {
	// The oracle reads and rewrites the real file, so it must start from
	// the merge base.
	if err := a.store.Write(file, base); err != nil {
		return "", err
	}

	described := make([]oracle.Version, len(versions))
	for i, v := range versions {
		described[i] = oracle.Version{Issues: v.Issues}
	}

	prompt := oracle.MergePrompt(file, described)
	if err := a.client.MergeVersions(ctx, a.root, prompt); err != nil {
		return "", err
	}
	return a.store.Read(file)
}
