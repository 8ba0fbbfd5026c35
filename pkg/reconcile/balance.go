package reconcile

import (
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

func computeBalance(ledger []models.LedgerTransaction, account *models.AccountSnapshot, target money.Milliunits) BalanceInfo {
	var cleared, uncleared money.Milliunits
	if account != nil {
		cleared, uncleared = account.ClearedBalance, account.UnclearedBalance
	} else {
		for _, lt := range ledger {
			if lt.Cleared.IsCleared() {
				cleared += lt.Amount
			} else {
				uncleared += lt.Amount
			}
		}
	}

	discrepancy := cleared - target
	return BalanceInfo{
		CurrentCleared:   cleared,
		CurrentUncleared: uncleared,
		CurrentTotal:     cleared + uncleared,
		TargetStatement:  target,
		Discrepancy:      discrepancy,
		OnTrack:          discrepancy.Abs() < money.PerCent,
	}
}
