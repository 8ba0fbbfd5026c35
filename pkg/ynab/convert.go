package ynab

import (
	"fmt"
	"time"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/transaction"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

func toLedger(t *transaction.Transaction) models.LedgerTransaction {
	y, m, d := t.Date.Date()
	return models.LedgerTransaction{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Amount:       money.Milliunits(t.Amount),
		PayeeID:      t.PayeeID,
		PayeeName:    t.PayeeName,
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName,
		Cleared:      models.ClearedStatus(t.Cleared),
		Approved:     t.Approved,
		Memo:         t.Memo,
		Deleted:      t.Deleted,
	}
}

func toAccount(a *account.Account) models.Account {
	return models.Account{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		OnBudget:         a.OnBudget,
		Closed:           a.Closed,
		Balance:          money.Milliunits(a.Balance),
		ClearedBalance:   money.Milliunits(a.ClearedBalance),
		UnclearedBalance: money.Milliunits(a.UnclearedBalance),
	}
}

func clearingStatus(s models.ClearedStatus) transaction.ClearingStatus {
	switch s {
	case models.Cleared:
		return transaction.ClearingStatusCleared
	case models.Reconciled:
		return transaction.ClearingStatusReconciled
	default:
		return transaction.ClearingStatusUncleared
	}
}

func apiDate(t time.Time) (api.Date, error) {
	d, err := api.DateFromString(t.Format(models.DateLayout))
	if err != nil {
		return api.Date{}, fmt.Errorf("invalid date %s: %w", t.Format(models.DateLayout), err)
	}
	return d, nil
}

func createPayload(txn models.NewTransaction) (transaction.PayloadTransaction, error) {
	date, err := apiDate(txn.Date)
	if err != nil {
		return transaction.PayloadTransaction{}, err
	}
	return transaction.PayloadTransaction{
		AccountID: txn.AccountID,
		Date:      date,
		Amount:    int64(txn.Amount),
		Cleared:   clearingStatus(txn.Cleared),
		Approved:  txn.Approved,
		PayeeName: txn.PayeeName,
		Memo:      txn.Memo,
	}, nil
}

// updatePayload builds a full replacement payload; YNAB resets fields that
// are omitted.
func updatePayload(u models.TransactionUpdate) (transaction.PayloadTransaction, error) {
	date, err := apiDate(u.Date)
	if err != nil {
		return transaction.PayloadTransaction{}, err
	}
	p := transaction.PayloadTransaction{
		AccountID:  u.AccountID,
		Date:       date,
		Amount:     int64(u.Amount),
		Cleared:    clearingStatus(u.Cleared),
		Approved:   u.Approved,
		PayeeID:    u.PayeeID,
		CategoryID: u.CategoryID,
		Memo:       u.Memo,
	}
	if u.PayeeID == nil {
		p.PayeeName = u.PayeeName
	}
	return p, nil
}
