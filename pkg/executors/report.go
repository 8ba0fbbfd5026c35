package executors

import (
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

type ActionType string

const (
	CreateTransaction ActionType = "create_transaction"
	MarkCleared       ActionType = "mark_cleared"
	AdjustDate        ActionType = "adjust_date"
	MarkUncleared     ActionType = "mark_uncleared"
)

type ActionStatus string

const (
	WouldApply ActionStatus = "dry_run"
	Applied    ActionStatus = "applied"
	Failed     ActionStatus = "failed"
)

// ActionRecord is one entry of the execution audit log.
type ActionRecord struct {
	Type              ActionType   `json:"type"`
	Status            ActionStatus `json:"status"`
	TransactionID     string       `json:"transaction_id,omitempty"`
	BankTransactionID string       `json:"bank_transaction_id,omitempty"`
	Description       string       `json:"description"`
	Error             string       `json:"error,omitempty"`
}

type Summary struct {
	BankTransactions      int  `json:"bank_transactions_count"`
	YNABTransactions      int  `json:"ynab_transactions_count"`
	MatchesFound          int  `json:"matches_found"`
	TransactionsCreated   int  `json:"transactions_created"`
	TransactionsUpdated   int  `json:"transactions_updated"`
	DatesAdjusted         int  `json:"dates_adjusted"`
	TransactionsUncleared int  `json:"transactions_uncleared"`
	Failures              int  `json:"failures"`
	DryRun                bool `json:"dry_run"`
}

type AccountBalance struct {
	Before models.AccountSnapshot `json:"before"`
	After  models.AccountSnapshot `json:"after"`
}

type ReconciliationStatus string

const (
	PerfectlyReconciled ReconciliationStatus = "PERFECTLY_RECONCILED"
	DiscrepancyFound    ReconciliationStatus = "DISCREPANCY_FOUND"
)

type CauseType string

const (
	BankFeeOrInterest  CauseType = "bank_fee_or_interest"
	MissingTransaction CauseType = "missing_transaction"
	StaleCleared       CauseType = "stale_cleared"
	SignReversed       CauseType = "sign_reversed"
)

// LikelyCause is one candidate explanation of a statement discrepancy.
type LikelyCause struct {
	Type                CauseType        `json:"type"`
	Description         string           `json:"description"`
	Confidence          float64          `json:"confidence"`
	Amount              money.Milliunits `json:"amount"`
	SuggestedResolution string           `json:"suggested_resolution"`
	TransactionID       string           `json:"transaction_id,omitempty"`
}

// BalanceReconciliation compares the cleared balance as of the statement date
// with the statement balance. Difference is cleared minus statement.
type BalanceReconciliation struct {
	Status           ReconciliationStatus `json:"status"`
	StatementDate    string               `json:"statement_date"`
	StatementBalance money.Milliunits     `json:"statement_balance"`
	ClearedBalance   money.Milliunits     `json:"cleared_balance"`
	Difference       money.Milliunits     `json:"difference"`
	LikelyCauses     []LikelyCause        `json:"likely_causes,omitempty"`
}

type ExecutionResult struct {
	Summary               Summary                `json:"summary"`
	AccountBalance        AccountBalance         `json:"account_balance"`
	ActionsTaken          []ActionRecord         `json:"actions_taken"`
	Recommendations       []string               `json:"recommendations"`
	BalanceReconciliation *BalanceReconciliation `json:"balance_reconciliation,omitempty"`
}
