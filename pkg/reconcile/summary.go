package reconcile

import (
	"fmt"
	"strings"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
)

// BalancesMatch is the discrepancy explanation when the cleared balance
// agrees with the statement.
const BalancesMatch = "Balances match: the cleared balance equals the statement balance"

// AllMatched is the only next step when there is nothing left to do.
const AllMatched = "All transactions are matched; nothing to reconcile"

func summarize(a *Analysis, bank []models.BankTransaction, ledger []models.LedgerTransaction) Summary {
	s := Summary{
		BankTransactions: len(bank),
		YNABTransactions: len(ledger),
		AutoMatched:      len(a.AutoMatches),
		SuggestedMatches: len(a.SuggestedMatches),
		UnmatchedBank:    len(a.UnmatchedBank),
		UnmatchedYNAB:    len(a.UnmatchedYNAB),
		SkippedRows:      len(a.SkippedRows),
	}
	s.StatementFrom, s.StatementTo = statementRange(bank)
	for _, m := range a.AutoMatches {
		if !m.LedgerTransaction.Cleared.IsCleared() {
			s.NeedsClearing++
		}
	}
	s.DiscrepancyExplanation = explainDiscrepancy(s, a.BalanceInfo)
	return s
}

func explainDiscrepancy(s Summary, b BalanceInfo) string {
	if b.OnTrack {
		return BalancesMatch
	}

	var actions []string
	if s.NeedsClearing > 0 {
		actions = append(actions, fmt.Sprintf("clear %d transaction(s)", s.NeedsClearing))
	}
	if s.UnmatchedBank > 0 {
		actions = append(actions, fmt.Sprintf("add %d missing", s.UnmatchedBank))
	}
	if s.UnmatchedYNAB > 0 {
		actions = append(actions, fmt.Sprintf("review %d unmatched ledger", s.UnmatchedYNAB))
	}

	head := fmt.Sprintf("Cleared balance is off by %s", b.Discrepancy.Display("$"))
	if len(actions) == 0 {
		return head + "; no transaction differences explain it"
	}
	return head + ": " + strings.Join(actions, ", ")
}

func nextSteps(s Summary) []string {
	var steps []string
	if s.NeedsClearing > 0 {
		steps = append(steps, fmt.Sprintf("Mark %d matched transaction(s) as cleared", s.NeedsClearing))
	}
	if s.SuggestedMatches > 0 {
		steps = append(steps, fmt.Sprintf("Review %d suggested match(es) before applying", s.SuggestedMatches))
	}
	if s.UnmatchedBank > 0 {
		steps = append(steps, fmt.Sprintf("Add %d bank transaction(s) missing from YNAB", s.UnmatchedBank))
	}
	if s.UnmatchedYNAB > 0 {
		steps = append(steps, fmt.Sprintf("Review %d YNAB transaction(s) not on the statement", s.UnmatchedYNAB))
	}
	if s.SkippedRows > 0 {
		steps = append(steps, fmt.Sprintf("Check %d statement row(s) that could not be parsed", s.SkippedRows))
	}
	if len(steps) == 0 {
		return []string{AllMatched}
	}
	return steps
}
