package executors

import (
	"context"
	"time"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
)

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks -source=ledger.go Ledger

// Ledger is the budget API the executor reads from and writes to.
type Ledger interface {
	GetAccount(ctx context.Context, budgetID, accountID string) (*models.AccountSnapshot, error)
	ListTransactions(ctx context.Context, budgetID, accountID string, since *time.Time) ([]models.LedgerTransaction, error)
	CreateTransaction(ctx context.Context, budgetID string, txn models.NewTransaction) (*models.LedgerTransaction, error)
	UpdateTransaction(ctx context.Context, budgetID, transactionID string, update models.TransactionUpdate) (*models.LedgerTransaction, error)
}
