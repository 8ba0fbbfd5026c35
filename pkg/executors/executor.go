package executors

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

type Executor struct {
	logger *log.Logger
	ledger Ledger
}

func New(logger *log.Logger, ledger Ledger) *Executor {
	return &Executor{
		logger: logger,
		ledger: ledger,
	}
}

// Options selects which corrective actions run and whether they are written.
type Options struct {
	BudgetID  string `json:"budget_id" yaml:"budget_id"`
	AccountID string `json:"account_id" yaml:"account_id"`

	AutoCreateTransactions  bool `json:"auto_create_transactions" yaml:"auto_create_transactions"`
	AutoUpdateClearedStatus bool `json:"auto_update_cleared_status" yaml:"auto_update_cleared_status"`
	AutoUnclearMissing      bool `json:"auto_unclear_missing" yaml:"auto_unclear_missing"`
	AutoAdjustDates         bool `json:"auto_adjust_dates" yaml:"auto_adjust_dates"`
	DryRun                  bool `json:"dry_run" yaml:"dry_run"`

	// Both must be set for the statement balance check to run.
	StatementDate    *time.Time        `json:"statement_date,omitempty" yaml:"statement_date,omitempty"`
	StatementBalance *money.Milliunits `json:"statement_balance,omitempty" yaml:"statement_balance,omitempty"`

	// OnAction, if set, is called after every recorded action.
	OnAction func(ActionRecord) `json:"-" yaml:"-"`
}

// DefaultOptions creates and clears but leaves dates alone, and does not write.
func DefaultOptions() Options {
	return Options{
		AutoCreateTransactions:  true,
		AutoUpdateClearedStatus: true,
		AutoUnclearMissing:      true,
		DryRun:                  true,
	}
}
