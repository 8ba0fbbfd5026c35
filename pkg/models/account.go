package models

import "github.com/yurifrl/ynab-reconciler/pkg/money"

// Budget is a budget visible to the configured token.
type Budget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is an account of a budget.
type Account struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Type             string           `json:"type"`
	OnBudget         bool             `json:"on_budget"`
	Closed           bool             `json:"closed"`
	Balance          money.Milliunits `json:"balance"`
	ClearedBalance   money.Milliunits `json:"cleared_balance"`
	UnclearedBalance money.Milliunits `json:"uncleared_balance"`
}

// Snapshot returns the account balances.
func (a Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Balance:          a.Balance,
		ClearedBalance:   a.ClearedBalance,
		UnclearedBalance: a.UnclearedBalance,
	}
}
