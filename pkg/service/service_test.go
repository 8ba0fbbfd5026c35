package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/executors/mocks"
	"github.com/yurifrl/ynab-reconciler/pkg/locker"
	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/plan"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

const (
	budgetID  = "budget-1"
	accountID = "account-1"

	statement = "Date,Description,Amount\n" +
		"10/01/2025,Shell Gas,-45.23\n" +
		"10/05/2025,Coffee,-4.50\n"
)

type testLedger struct {
	*mocks.MockLedger
}

func (testLedger) ListBudgets(context.Context) ([]models.Budget, error) {
	return []models.Budget{{ID: budgetID, Name: "Home"}}, nil
}

func (testLedger) ListAccounts(context.Context, string) ([]models.Account, error) {
	return []models.Account{{ID: accountID, Name: "Checking"}}, nil
}

func (testLedger) Currency(context.Context, string) (string, error) {
	return "USD", nil
}

func newService(t *testing.T) (*Service, *mocks.MockLedger) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockLedger(ctrl)
	return New(log.New(io.Discard), testLedger{m}, matcher.DefaultConfig()), m
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func balance(m money.Milliunits) *money.Milliunits {
	return &m
}

func ledgerFixture() []models.LedgerTransaction {
	return []models.LedgerTransaction{
		{ID: "l1", AccountID: accountID, Date: day("2025-10-01"), Amount: -45230, PayeeName: models.StringPtr("Shell Gas"), Cleared: models.Uncleared, Approved: true},
		{ID: "l2", AccountID: accountID, Date: day("2025-10-20"), Amount: -9000, PayeeName: models.StringPtr("Later"), Cleared: models.Cleared, Approved: true},
	}
}

func TestReconcileAnalyzesStatementWindow(t *testing.T) {
	svc, m := newService(t)
	snapshot := &models.AccountSnapshot{Balance: -54230, ClearedBalance: -9000, UnclearedBalance: -45230}

	var since *time.Time
	m.EXPECT().GetAccount(gomock.Any(), budgetID, accountID).Return(snapshot, nil)
	m.EXPECT().ListTransactions(gomock.Any(), budgetID, accountID, gomock.Not(gomock.Nil())).
		DoAndReturn(func(_ context.Context, _, _ string, s *time.Time) ([]models.LedgerTransaction, error) {
			since = s
			return ledgerFixture(), nil
		})

	resp, err := svc.Reconcile(context.Background(), Request{
		BudgetID:         budgetID,
		AccountID:        accountID,
		Content:          []byte(statement),
		Filename:         "oct.csv",
		StatementBalance: balance(-9000),
	})
	require.NoError(t, err)

	require.NotNil(t, since)
	assert.Equal(t, "2025-09-29", since.Format(models.DateLayout))

	a := resp.Analysis
	assert.Equal(t, "USD", resp.Currency)
	assert.Nil(t, resp.Execution)
	require.Len(t, a.AutoMatches, 1)
	assert.Equal(t, "l1", a.AutoMatches[0].LedgerTransaction.ID)
	require.Len(t, a.UnmatchedBank, 1)
	assert.Equal(t, "Coffee", a.UnmatchedBank[0].BankTransaction.Payee)
	assert.Empty(t, a.UnmatchedYNAB, "transactions after the window are dropped")

	assert.Equal(t, money.Milliunits(-9000), a.BalanceInfo.CurrentCleared)
	assert.True(t, a.BalanceInfo.OnTrack)
}

func TestReconcileExecutesDryRun(t *testing.T) {
	svc, m := newService(t)
	snapshot := &models.AccountSnapshot{ClearedBalance: -9000}

	m.EXPECT().GetAccount(gomock.Any(), budgetID, accountID).Return(snapshot, nil).Times(2)
	m.EXPECT().ListTransactions(gomock.Any(), budgetID, accountID, gomock.Any()).Return(ledgerFixture(), nil)

	resp, err := svc.Reconcile(context.Background(), Request{
		BudgetID:         budgetID,
		AccountID:        accountID,
		Content:          []byte(statement),
		StatementBalance: balance(-9000),
		Execute:          true,
		Options:          executors.DefaultOptions(),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Execution)

	res := resp.Execution
	assert.True(t, res.Summary.DryRun)
	assert.Equal(t, 1, res.Summary.TransactionsCreated)
	assert.Equal(t, 1, res.Summary.TransactionsUpdated)
	require.Len(t, res.ActionsTaken, 2)
	assert.Equal(t, executors.CreateTransaction, res.ActionsTaken[0].Type)
	assert.Equal(t, executors.MarkCleared, res.ActionsTaken[1].Type)
	assert.Nil(t, res.BalanceReconciliation)
}

func TestReconcileLeavesPriorPeriodCleared(t *testing.T) {
	svc, m := newService(t)
	ledger := append(ledgerFixture(), models.LedgerTransaction{
		ID: "rent", AccountID: accountID, Date: day("2025-09-30"), Amount: -120000,
		PayeeName: models.StringPtr("Rent"), Cleared: models.Cleared, Approved: true,
	})

	m.EXPECT().GetAccount(gomock.Any(), budgetID, accountID).Return(&models.AccountSnapshot{ClearedBalance: -129000}, nil).Times(2)
	m.EXPECT().ListTransactions(gomock.Any(), budgetID, accountID, gomock.Any()).Return(ledger, nil)

	resp, err := svc.Reconcile(context.Background(), Request{
		BudgetID:         budgetID,
		AccountID:        accountID,
		Content:          []byte(statement),
		StatementBalance: balance(-129000),
		Execute:          true,
		Options:          executors.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Analysis.UnmatchedYNAB)
	for _, action := range resp.Execution.ActionsTaken {
		assert.NotEqual(t, executors.MarkUncleared, action.Type, "rent belongs to the previous statement")
	}
	assert.Equal(t, 0, resp.Execution.Summary.TransactionsUncleared)
}

func TestReconcileRequiresBalance(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Reconcile(context.Background(), Request{
		BudgetID:  budgetID,
		AccountID: accountID,
		Content:   []byte(statement),
	})
	assert.ErrorIs(t, err, ErrMissingStatementBalance)
	assert.False(t, svc.locker.IsLocked(locker.Key(budgetID, accountID)), "lock is released on error")
}

func TestReconcileRequiresStatement(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Reconcile(context.Background(), Request{BudgetID: budgetID, AccountID: accountID})
	assert.ErrorIs(t, err, ErrMissingStatement)
}

func TestReconcileRejectsConcurrentRun(t *testing.T) {
	svc, _ := newService(t)
	require.True(t, svc.locker.TryLock(locker.Key(budgetID, accountID)))

	_, err := svc.Reconcile(context.Background(), Request{
		BudgetID:         budgetID,
		AccountID:        accountID,
		Content:          []byte(statement),
		StatementBalance: balance(0),
	})
	assert.ErrorIs(t, err, ErrReconciliationInProgress)
}

func TestReconcileUnparseableStatement(t *testing.T) {
	svc, m := newService(t)
	m.EXPECT().GetAccount(gomock.Any(), budgetID, accountID).Return(&models.AccountSnapshot{}, nil)
	m.EXPECT().ListTransactions(gomock.Any(), budgetID, accountID, gomock.Nil()).Return(nil, nil)

	_, err := svc.Reconcile(context.Background(), Request{
		BudgetID:         budgetID,
		AccountID:        accountID,
		Content:          []byte("Date,Description,Amount\nnot a date,Shell,-1.00\n"),
		StatementBalance: balance(0),
	})
	assert.ErrorIs(t, err, reconcile.ErrNoParseableRows)
}

func TestRunPlanContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oct.csv"), []byte(statement), 0o600))
	planYAML := "ynab:\n  budget_id: " + budgetID + "\n  accounts:\n    checking: " + accountID + "\n" +
		"statements:\n" +
		"  - file: missing.csv\n    account: checking\n    statement_balance: \"0\"\n" +
		"  - file: oct.csv\n    account: checking\n    statement_balance: \"-9.00\"\n"
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(planYAML), 0o600))

	p, err := plan.Load(planPath)
	require.NoError(t, err)

	svc, m := newService(t)
	m.EXPECT().GetAccount(gomock.Any(), budgetID, accountID).Return(&models.AccountSnapshot{ClearedBalance: -9000}, nil).Times(2)
	m.EXPECT().ListTransactions(gomock.Any(), budgetID, accountID, gomock.Any()).Return(ledgerFixture(), nil)

	runs, err := svc.RunPlan(context.Background(), p, executors.DefaultOptions())
	require.Len(t, runs, 2)
	assert.ErrorContains(t, err, "missing.csv: invalid statement: failed to read statement file")

	assert.Error(t, runs[0].Err)
	assert.Nil(t, runs[0].Response)

	require.NoError(t, runs[1].Err)
	require.NotNil(t, runs[1].Response.Execution)
	assert.True(t, runs[1].Response.Execution.Summary.DryRun)
	assert.Equal(t, accountID, runs[1].AccountID)
}

func TestDirectory(t *testing.T) {
	svc, _ := newService(t)

	budgets, err := svc.Budgets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Home", budgets[0].Name)

	accounts, err := svc.Accounts(context.Background(), budgetID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", accounts[0].Name)
}
