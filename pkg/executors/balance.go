package executors

import (
	"fmt"
	"sort"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

// reconcileBalance sums cleared and reconciled transactions dated on or
// before the statement date and compares them with the statement balance.
func (r *run) reconcileBalance(a *reconcile.Analysis) *BalanceReconciliation {
	txns, err := r.e.ledger.ListTransactions(r.ctx, r.opts.BudgetID, r.opts.AccountID, nil)
	if err != nil {
		r.e.logger.Warn("failed to list transactions for balance check", "account_id", r.opts.AccountID, "err", err)
		r.recommend("Could not verify the statement balance: %v", err)
		return nil
	}

	asOf := r.opts.StatementDate.Format(models.DateLayout)
	var cleared money.Milliunits
	for _, lt := range txns {
		if lt.Deleted || !lt.Cleared.IsCleared() || lt.DateString() > asOf {
			continue
		}
		cleared += lt.Amount
	}

	statement := *r.opts.StatementBalance
	br := &BalanceReconciliation{
		Status:           PerfectlyReconciled,
		StatementDate:    asOf,
		StatementBalance: statement,
		ClearedBalance:   cleared,
		Difference:       cleared - statement,
	}
	if br.Difference != 0 {
		br.Status = DiscrepancyFound
		br.LikelyCauses = likelyCauses(br.Difference, a)
	}
	r.e.logger.Info("statement balance checked", "status", br.Status, "cleared", cleared, "statement", statement)
	return br
}

// likelyCauses lists explanations for a discrepancy diff (cleared minus
// statement), most plausible first.
func likelyCauses(diff money.Milliunits, a *reconcile.Analysis) []LikelyCause {
	var causes []LikelyCause

	for _, m := range a.UnmatchedBank {
		b := m.BankTransaction
		if b.Amount == -diff {
			causes = append(causes, LikelyCause{
				Type:                MissingTransaction,
				Description:         fmt.Sprintf("Bank transaction %s %s %q is not in YNAB", b.DateString(), b.Amount.Display("$"), b.Payee),
				Confidence:          0.8,
				Amount:              b.Amount,
				SuggestedResolution: "Create the transaction in YNAB as cleared",
				TransactionID:       b.ID,
			})
		}
	}

	for _, lt := range a.UnmatchedYNAB {
		if !lt.Cleared.IsCleared() {
			continue
		}
		switch diff {
		case lt.Amount:
			causes = append(causes, LikelyCause{
				Type:                StaleCleared,
				Description:         fmt.Sprintf("YNAB transaction %s %s %q is cleared but not on the statement", lt.DateString(), lt.Amount.Display("$"), lt.Payee()),
				Confidence:          0.7,
				Amount:              lt.Amount,
				SuggestedResolution: "Mark it uncleared or delete it if it was voided",
				TransactionID:       lt.ID,
			})
		case 2 * lt.Amount:
			causes = append(causes, LikelyCause{
				Type:                SignReversed,
				Description:         fmt.Sprintf("YNAB transaction %s %s %q may have been entered with the wrong sign", lt.DateString(), lt.Amount.Display("$"), lt.Payee()),
				Confidence:          0.6,
				Amount:              lt.Amount,
				SuggestedResolution: fmt.Sprintf("Change its amount to %s", (-lt.Amount).Display("$")),
				TransactionID:       lt.ID,
			})
		}
	}

	if diff.IsMultipleOf(money.PerUnit) {
		causes = append(causes, LikelyCause{
			Type:                BankFeeOrInterest,
			Description:         fmt.Sprintf("The difference of %s is a round amount, typical of a bank fee or interest", diff.Abs().Display("$")),
			Confidence:          0.4,
			Amount:              -diff,
			SuggestedResolution: fmt.Sprintf("Add an adjustment transaction of %s", (-diff).Display("$")),
		})
	}

	sort.SliceStable(causes, func(i, j int) bool { return causes[i].Confidence > causes[j].Confidence })
	return causes
}
