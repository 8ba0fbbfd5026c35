package ynab

import (
	"context"
	"fmt"
	"time"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/budget"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
)

const (
	DefaultRequestsPerHour = 200
	DefaultCacheTTL        = 5 * time.Minute
)

type transactionAPI interface {
	GetTransactionsByAccount(budgetID, accountID string, f *transaction.Filter) ([]*transaction.Transaction, error)
	CreateTransaction(budgetID string, p transaction.PayloadTransaction) (*transaction.OperationSummary, error)
	UpdateTransaction(budgetID, transactionID string, p transaction.PayloadTransaction) (*transaction.Transaction, error)
}

type accountAPI interface {
	GetAccount(budgetID, accountID string) (*account.Account, error)
	GetAccounts(budgetID string, f *api.Filter) (*account.SearchResultSnapshot, error)
}

type budgetAPI interface {
	GetBudgets() ([]*budget.Summary, error)
	GetBudgetSettings(budgetID string) (*budget.Settings, error)
}

type Options struct {
	RequestsPerHour int
	CacheTTL        time.Duration
}

// Client is the YNAB collaborator used by the reconciliation service. Every
// request goes through a shared rate limiter; budget settings and account
// lists are cached.
type Client struct {
	logger       *log.Logger
	transactions transactionAPI
	accounts     accountAPI
	budgets      budgetAPI
	limiter      *limiter
	cache        *cache
}

func New(logger *log.Logger, token string, opts Options) *Client {
	c := ynab.NewClient(token)
	return newClient(logger, c.Transaction(), c.Account(), c.Budget(), opts)
}

func newClient(logger *log.Logger, t transactionAPI, a accountAPI, b budgetAPI, opts Options) *Client {
	return &Client{
		logger:       logger,
		transactions: t,
		accounts:     a,
		budgets:      b,
		limiter:      newLimiter(opts.RequestsPerHour),
		cache:        newCache(opts.CacheTTL),
	}
}

func (c *Client) acquire(ctx context.Context, op string, kv ...any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	c.logger.Debug("ynab request", append([]any{"op", op, "remaining", c.limiter.remaining()}, kv...)...)
	return nil
}

// ListBudgets returns the budgets visible to the token.
func (c *Client) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	if v, ok := c.cache.get("budgets"); ok {
		return v.([]models.Budget), nil
	}
	if err := c.acquire(ctx, "get_budgets"); err != nil {
		return nil, err
	}
	summaries, err := c.budgets.GetBudgets()
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	out := make([]models.Budget, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, models.Budget{ID: s.ID, Name: s.Name})
	}
	c.cache.set("budgets", out)
	return out, nil
}

// Currency returns the ISO currency code of a budget.
func (c *Client) Currency(ctx context.Context, budgetID string) (string, error) {
	key := "currency:" + budgetID
	if v, ok := c.cache.get(key); ok {
		return v.(string), nil
	}
	if err := c.acquire(ctx, "get_budget_settings", "budget_id", budgetID); err != nil {
		return "", err
	}
	settings, err := c.budgets.GetBudgetSettings(budgetID)
	if err != nil {
		return "", fmt.Errorf("failed to read budget settings %s: %w", budgetID, err)
	}
	code := settings.CurrencyFormat.ISOCode
	c.cache.set(key, code)
	return code, nil
}

// ListAccounts returns the open and closed accounts of a budget.
func (c *Client) ListAccounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	key := accountsKey(budgetID)
	if v, ok := c.cache.get(key); ok {
		return v.([]models.Account), nil
	}
	if err := c.acquire(ctx, "get_accounts", "budget_id", budgetID); err != nil {
		return nil, err
	}
	snapshot, err := c.accounts.GetAccounts(budgetID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts of %s: %w", budgetID, err)
	}
	out := make([]models.Account, 0, len(snapshot.Accounts))
	for _, a := range snapshot.Accounts {
		if a.Deleted {
			continue
		}
		out = append(out, toAccount(a))
	}
	c.cache.set(key, out)
	return out, nil
}

// GetAccount reads current balances. It is never cached.
func (c *Client) GetAccount(ctx context.Context, budgetID, accountID string) (*models.AccountSnapshot, error) {
	if err := c.acquire(ctx, "get_account", "budget_id", budgetID, "account_id", accountID); err != nil {
		return nil, err
	}
	a, err := c.accounts.GetAccount(budgetID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", accountID, err)
	}
	snapshot := toAccount(a).Snapshot()
	return &snapshot, nil
}

func (c *Client) ListTransactions(ctx context.Context, budgetID, accountID string, since *time.Time) ([]models.LedgerTransaction, error) {
	if err := c.acquire(ctx, "get_transactions_by_account", "budget_id", budgetID, "account_id", accountID); err != nil {
		return nil, err
	}

	var filter *transaction.Filter
	if since != nil {
		d, err := apiDate(*since)
		if err != nil {
			return nil, err
		}
		filter = &transaction.Filter{Since: &d}
	}

	txns, err := c.transactions.GetTransactionsByAccount(budgetID, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of %s: %w", accountID, err)
	}
	out := make([]models.LedgerTransaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, toLedger(t))
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, budgetID string, txn models.NewTransaction) (*models.LedgerTransaction, error) {
	if err := c.acquire(ctx, "create_transaction", "budget_id", budgetID, "account_id", txn.AccountID); err != nil {
		return nil, err
	}
	payload, err := createPayload(txn)
	if err != nil {
		return nil, err
	}

	summary, err := c.transactions.CreateTransaction(budgetID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	c.cache.invalidate(accountsKey(budgetID))

	if summary == nil || summary.Transaction == nil {
		return nil, fmt.Errorf("failed to create transaction: empty response")
	}
	created := toLedger(summary.Transaction)
	return &created, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, budgetID, transactionID string, update models.TransactionUpdate) (*models.LedgerTransaction, error) {
	if err := c.acquire(ctx, "update_transaction", "budget_id", budgetID, "transaction_id", transactionID); err != nil {
		return nil, err
	}
	payload, err := updatePayload(update)
	if err != nil {
		return nil, err
	}

	t, err := c.transactions.UpdateTransaction(budgetID, transactionID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	c.cache.invalidate(accountsKey(budgetID))

	updated := toLedger(t)
	return &updated, nil
}

func accountsKey(budgetID string) string {
	return "accounts:" + budgetID
}
