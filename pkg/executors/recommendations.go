package executors

import (
	"fmt"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

// balanceChangeEpsilon is the smallest cleared-balance change worth reporting.
const balanceChangeEpsilon = 10 * money.PerCent

// NothingToDo is the only recommendation when the run needs no follow-up.
const NothingToDo = "Reconciliation complete; no further action needed"

func recommendations(a *reconcile.Analysis, r *run) []string {
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	if r.opts.DryRun && len(r.result.ActionsTaken) > 0 {
		add("Dry run: %d action(s) were simulated and nothing was written; run again without dry run to apply them", len(r.result.ActionsTaken))
	}

	if !r.opts.AutoCreateTransactions && len(a.UnmatchedBank) > 0 {
		add("Enable auto_create_transactions to add %d missing transaction(s)", len(a.UnmatchedBank))
	}
	if !r.opts.AutoUpdateClearedStatus && a.Summary.NeedsClearing > 0 {
		add("Enable auto_update_cleared_status to clear %d matched transaction(s)", a.Summary.NeedsClearing)
	}
	if !r.opts.AutoAdjustDates {
		if n := dateMismatches(a); n > 0 {
			add("Enable auto_adjust_dates to align %d transaction date(s) with the statement", n)
		}
	}
	if !r.opts.AutoUnclearMissing {
		if n := clearedUnmatched(a.UnmatchedYNAB); n > 0 {
			add("Enable auto_unclear_missing to unclear %d cleared transaction(s) missing from the statement", n)
		}
	}
	if r.skipped > 0 {
		add("%d cleared transaction(s) were left cleared because they are candidates for a suggested match", r.skipped)
	}
	if n := len(a.SuggestedMatches); n > 0 {
		add("Review %d suggested match(es) manually", n)
	}

	before, after := r.result.AccountBalance.Before.ClearedBalance, r.result.AccountBalance.After.ClearedBalance
	if change := after - before; change.Abs() > balanceChangeEpsilon {
		add("Cleared balance changed by %s (from %s to %s)", change.Display("$"), before.Display("$"), after.Display("$"))
	}

	if br := r.result.BalanceReconciliation; br != nil && br.Status == DiscrepancyFound {
		add("Cleared balance differs from the statement by %s as of %s", br.Difference.Display("$"), br.StatementDate)
		if len(br.LikelyCauses) > 0 {
			add("Most likely: %s. %s", br.LikelyCauses[0].Description, br.LikelyCauses[0].SuggestedResolution)
		}
	}

	if len(out) == 0 && len(r.result.Recommendations) == 0 {
		out = append(out, NothingToDo)
	}
	return out
}

func dateMismatches(a *reconcile.Analysis) int {
	n := 0
	for _, m := range a.AutoMatches {
		if !models.SameDay(m.LedgerTransaction.Date, m.BankTransaction.Date) {
			n++
		}
	}
	return n
}

func clearedUnmatched(txns []models.LedgerTransaction) int {
	n := 0
	for _, lt := range txns {
		if lt.Cleared == models.Cleared {
			n++
		}
	}
	return n
}
