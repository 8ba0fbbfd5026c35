package service

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/plan"
)

// StatementRun is the outcome of one plan statement.
type StatementRun struct {
	Statement plan.Statement `json:"statement"`
	AccountID string         `json:"account_id"`
	Response  *Response      `json:"response,omitempty"`
	Err       error          `json:"-"`
}

// RunPlan reconciles every statement of p in order. A failing statement does
// not stop the others; all failures are returned combined.
func (s *Service) RunPlan(ctx context.Context, p *plan.Plan, base executors.Options) ([]StatementRun, error) {
	runs := make([]StatementRun, 0, len(p.Statements))
	var errs error

	for _, st := range p.Statements {
		run := StatementRun{Statement: st, AccountID: p.AccountID(st)}

		path, err := p.Path(st)
		if err != nil {
			run.Err = err
		} else {
			opts := p.Options(st, base)
			run.Response, run.Err = s.Reconcile(ctx, Request{
				BudgetID:         opts.BudgetID,
				AccountID:        opts.AccountID,
				FilePath:         path,
				StatementBalance: opts.StatementBalance,
				StatementDate:    opts.StatementDate,
				Execute:          true,
				Options:          opts,
			})
		}

		if run.Err != nil {
			s.logger.Error("statement failed", "statement", st.Label(), "err", run.Err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", st.Label(), run.Err))
		}
		runs = append(runs, run)
	}
	return runs, errs
}
