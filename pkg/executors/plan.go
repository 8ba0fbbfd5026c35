package executors

import (
	"context"

	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

// Plan previews the actions Execute would take without writing anything.
func (e *Executor) Plan(ctx context.Context, a *reconcile.Analysis, opts Options) (*ExecutionResult, error) {
	e.logger.Debug("planning reconciliation", "account_id", opts.AccountID)
	opts.DryRun = true
	return e.Execute(ctx, a, opts)
}

// Apply writes the selected actions to the ledger.
func (e *Executor) Apply(ctx context.Context, a *reconcile.Analysis, opts Options) (*ExecutionResult, error) {
	e.logger.Debug("applying reconciliation", "account_id", opts.AccountID)
	opts.DryRun = false
	return e.Execute(ctx, a, opts)
}
