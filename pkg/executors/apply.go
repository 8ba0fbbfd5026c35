package executors

import (
	"context"
	"fmt"

	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

// run holds the state of one Execute call.
type run struct {
	e      *Executor
	ctx    context.Context
	opts   Options
	result *ExecutionResult
	dirty  bool
	// ledger ids offered as a suggestion; never uncleared
	protected map[string]struct{}
	skipped   int
}

// Execute applies the corrective actions selected in opts to the account the
// analysis was made for. Only a failure to read the account up front is
// returned as an error; failed writes are reported in the result.
func (e *Executor) Execute(ctx context.Context, a *reconcile.Analysis, opts Options) (*ExecutionResult, error) {
	before, err := e.ledger.GetAccount(ctx, opts.BudgetID, opts.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", opts.AccountID, err)
	}

	r := &run{
		e:    e,
		ctx:  ctx,
		opts: opts,
		result: &ExecutionResult{
			Summary: Summary{
				BankTransactions: a.Summary.BankTransactions,
				YNABTransactions: a.Summary.YNABTransactions,
				MatchesFound:     len(a.AutoMatches),
				DryRun:           opts.DryRun,
			},
			AccountBalance:  AccountBalance{Before: *before, After: *before},
			ActionsTaken:    []ActionRecord{},
			Recommendations: []string{},
		},
		protected: suggestedLedgerIDs(a),
	}

	e.logger.Info("executing reconciliation", "account_id", opts.AccountID, "dry_run", opts.DryRun,
		"unmatched_bank", len(a.UnmatchedBank), "auto_matches", len(a.AutoMatches), "unmatched_ynab", len(a.UnmatchedYNAB))

	r.createMissing(a.UnmatchedBank)
	r.updateMatched(a.AutoMatches)
	r.unclearMissing(a.UnmatchedYNAB)

	if opts.StatementDate != nil && opts.StatementBalance != nil {
		r.result.BalanceReconciliation = r.reconcileBalance(a)
	}

	if r.dirty {
		after, err := e.ledger.GetAccount(ctx, opts.BudgetID, opts.AccountID)
		if err != nil {
			e.logger.Warn("failed to refresh account balance", "account_id", opts.AccountID, "err", err)
			r.recommend("Could not refresh the account balance after writing: %v", err)
		} else {
			r.result.AccountBalance.After = *after
		}
	}

	r.result.Recommendations = append(r.result.Recommendations, recommendations(a, r)...)
	return r.result, nil
}

func (r *run) createMissing(unmatched []matcher.TransactionMatch) {
	if !r.opts.AutoCreateTransactions {
		return
	}
	for _, m := range unmatched {
		b := m.BankTransaction
		rec := ActionRecord{
			Type:              CreateTransaction,
			BankTransactionID: b.ID,
			Description:       fmt.Sprintf("create %s %s %q", b.DateString(), b.Amount.Display("$"), b.Payee),
		}
		if r.opts.DryRun {
			rec.Status = WouldApply
			rec.Description = "would " + rec.Description
			r.result.Summary.TransactionsCreated++
			r.record(rec)
			continue
		}

		created, err := r.e.ledger.CreateTransaction(r.ctx, r.opts.BudgetID, models.NewTransaction{
			AccountID: r.opts.AccountID,
			Date:      b.Date,
			Amount:    b.Amount,
			PayeeName: models.StringPtr(b.Payee),
			Memo:      models.StringPtr(b.Memo),
			Cleared:   models.Cleared,
			Approved:  true,
		})
		if err != nil {
			r.fail(rec, err, "Failed to create %s %s %q: %v", b.DateString(), b.Amount.Display("$"), b.Payee, err)
			continue
		}
		r.dirty = true
		rec.Status = Applied
		rec.TransactionID = created.ID
		r.result.Summary.TransactionsCreated++
		r.e.logger.Info("created transaction", "id", created.ID, "date", b.DateString(), "amount", b.Amount, "payee", b.Payee)
		r.record(rec)
	}
}

func (r *run) updateMatched(matches []matcher.TransactionMatch) {
	for _, m := range matches {
		lt := *m.LedgerTransaction
		b := m.BankTransaction

		needsCleared := r.opts.AutoUpdateClearedStatus && !lt.Cleared.IsCleared()
		needsDate := r.opts.AutoAdjustDates && !models.SameDay(lt.Date, b.Date)
		if !needsCleared && !needsDate {
			continue
		}

		update := models.UpdateFrom(lt)
		rec := ActionRecord{Type: MarkCleared, TransactionID: lt.ID, BankTransactionID: b.ID}
		switch {
		case needsCleared && needsDate:
			update.Cleared = models.Cleared
			update.Date = b.Date
			rec.Description = fmt.Sprintf("clear %q and move it from %s to %s", lt.Payee(), lt.DateString(), b.DateString())
		case needsCleared:
			update.Cleared = models.Cleared
			rec.Description = fmt.Sprintf("clear %s %s %q", lt.DateString(), lt.Amount.Display("$"), lt.Payee())
		default:
			update.Date = b.Date
			rec.Type = AdjustDate
			rec.Description = fmt.Sprintf("move %q from %s to %s", lt.Payee(), lt.DateString(), b.DateString())
		}

		if r.opts.DryRun {
			rec.Status = WouldApply
			rec.Description = "would " + rec.Description
			r.countUpdate(needsDate)
			r.record(rec)
			continue
		}

		if _, err := r.e.ledger.UpdateTransaction(r.ctx, r.opts.BudgetID, lt.ID, update); err != nil {
			r.fail(rec, err, "Failed to update %s %s %q: %v", lt.DateString(), lt.Amount.Display("$"), lt.Payee(), err)
			continue
		}
		r.dirty = true
		rec.Status = Applied
		r.countUpdate(needsDate)
		r.e.logger.Info("updated transaction", "id", lt.ID, "cleared", needsCleared, "date", needsDate)
		r.record(rec)
	}
}

func (r *run) unclearMissing(unmatched []models.LedgerTransaction) {
	if !r.opts.AutoUnclearMissing {
		return
	}
	for _, lt := range unmatched {
		if lt.Cleared != models.Cleared {
			continue
		}
		if _, ok := r.protected[lt.ID]; ok {
			r.skipped++
			continue
		}

		update := models.UpdateFrom(lt)
		update.Cleared = models.Uncleared
		rec := ActionRecord{
			Type:          MarkUncleared,
			TransactionID: lt.ID,
			Description:   fmt.Sprintf("unclear %s %s %q, not on the statement", lt.DateString(), lt.Amount.Display("$"), lt.Payee()),
		}

		if r.opts.DryRun {
			rec.Status = WouldApply
			rec.Description = "would " + rec.Description
			r.result.Summary.TransactionsUncleared++
			r.record(rec)
			continue
		}

		if _, err := r.e.ledger.UpdateTransaction(r.ctx, r.opts.BudgetID, lt.ID, update); err != nil {
			r.fail(rec, err, "Failed to unclear %s %s %q: %v", lt.DateString(), lt.Amount.Display("$"), lt.Payee(), err)
			continue
		}
		r.dirty = true
		rec.Status = Applied
		r.result.Summary.TransactionsUncleared++
		r.e.logger.Info("uncleared transaction", "id", lt.ID)
		r.record(rec)
	}
}

func (r *run) countUpdate(dateChanged bool) {
	r.result.Summary.TransactionsUpdated++
	if dateChanged {
		r.result.Summary.DatesAdjusted++
	}
}

func (r *run) record(rec ActionRecord) {
	r.result.ActionsTaken = append(r.result.ActionsTaken, rec)
	if r.opts.OnAction != nil {
		r.opts.OnAction(rec)
	}
}

func (r *run) fail(rec ActionRecord, err error, format string, args ...any) {
	r.e.logger.Warn("ledger write failed", "type", rec.Type, "transaction_id", rec.TransactionID, "bank_transaction_id", rec.BankTransactionID, "err", err)
	rec.Status = Failed
	rec.Error = err.Error()
	r.result.Summary.Failures++
	r.record(rec)
	r.recommend(format, args...)
}

func (r *run) recommend(format string, args ...any) {
	r.result.Recommendations = append(r.result.Recommendations, fmt.Sprintf(format, args...))
}

func suggestedLedgerIDs(a *reconcile.Analysis) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, m := range a.SuggestedMatches {
		for _, c := range m.Candidates {
			ids[c.LedgerTransaction.ID] = struct{}{}
		}
	}
	return ids
}
