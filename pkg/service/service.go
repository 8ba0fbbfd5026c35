package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/locker"
	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/parser"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

var (
	ErrReconciliationInProgress = errors.New("reconciliation already in progress for this account")
	ErrMissingStatementBalance  = errors.New("statement balance is required")
	ErrMissingStatement         = errors.New("statement content or file is required")
	ErrInvalidStatement         = errors.New("invalid statement")
)

// Ledger is the YNAB surface the service uses.
type Ledger interface {
	executors.Ledger
	ListBudgets(ctx context.Context) ([]models.Budget, error)
	ListAccounts(ctx context.Context, budgetID string) ([]models.Account, error)
	Currency(ctx context.Context, budgetID string) (string, error)
}

type Service struct {
	logger   *log.Logger
	ledger   Ledger
	parser   *parser.Parser
	locker   *locker.Locker
	matching matcher.Config
}

func New(logger *log.Logger, ledger Ledger, matching matcher.Config) *Service {
	return &Service{
		logger:   logger,
		ledger:   ledger,
		parser:   parser.New(logger),
		locker:   locker.New(),
		matching: matching,
	}
}

// Request describes one statement to reconcile. Either Content or FilePath
// must be set; Filename picks the statement format for Content.
type Request struct {
	BudgetID  string `json:"budget_id"`
	AccountID string `json:"account_id"`

	Content  []byte `json:"-"`
	Filename string `json:"filename,omitempty"`
	FilePath string `json:"file_path,omitempty"`

	// Override the closing balance and date carried by the statement file.
	StatementBalance *money.Milliunits `json:"statement_balance,omitempty"`
	StatementDate    *time.Time        `json:"statement_date,omitempty"`

	// Execute runs the executor with Options after the analysis.
	Execute bool              `json:"execute"`
	Options executors.Options `json:"options"`
}

type Response struct {
	Currency  string                     `json:"currency,omitempty"`
	Analysis  *reconcile.Analysis        `json:"analysis"`
	Execution *executors.ExecutionResult `json:"execution,omitempty"`
}

// Reconcile analyzes a statement against the account's ledger and, when
// requested, executes the corrective actions. Only one reconciliation per
// account runs at a time; a concurrent call fails with
// ErrReconciliationInProgress.
func (s *Service) Reconcile(ctx context.Context, req Request) (*Response, error) {
	key := locker.Key(req.BudgetID, req.AccountID)
	if !s.locker.TryLock(key) {
		return nil, fmt.Errorf("%w: %s", ErrReconciliationInProgress, key)
	}
	defer s.locker.Unlock(key)

	stmt, err := s.readStatement(req)
	if err != nil {
		return nil, err
	}

	balance := req.StatementBalance
	if balance == nil {
		balance = stmt.StatementBalance
	}
	if balance == nil {
		return nil, ErrMissingStatementBalance
	}
	date := req.StatementDate
	if date == nil {
		date = stmt.StatementDate
	}

	snapshot, err := s.ledger.GetAccount(ctx, req.BudgetID, req.AccountID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.fetchWindow(ctx, req.BudgetID, req.AccountID, stmt.Transactions)
	if err != nil {
		return nil, err
	}

	analysis, err := reconcile.AnalyzeStatement(stmt, reconcile.Request{
		Ledger:           ledger,
		StatementBalance: *balance,
		Account:          snapshot,
		Config:           s.matching,
		Period:           reconcile.StatementPeriod(stmt.Transactions),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("statement analyzed",
		"account_id", req.AccountID,
		"bank", analysis.Summary.BankTransactions,
		"auto", len(analysis.AutoMatches),
		"suggested", len(analysis.SuggestedMatches),
		"unmatched_bank", len(analysis.UnmatchedBank),
		"on_track", analysis.BalanceInfo.OnTrack,
	)

	resp := &Response{Analysis: analysis}
	if code, err := s.ledger.Currency(ctx, req.BudgetID); err != nil {
		s.logger.Warn("failed to read budget currency", "budget_id", req.BudgetID, "err", err)
	} else {
		resp.Currency = code
	}

	if !req.Execute {
		return resp, nil
	}

	opts := req.Options
	opts.BudgetID = req.BudgetID
	opts.AccountID = req.AccountID
	opts.StatementBalance = balance
	opts.StatementDate = date

	resp.Execution, err = executors.New(s.logger, s.ledger).Execute(ctx, analysis, opts)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) readStatement(req Request) (*parser.Result, error) {
	stmt, err := s.parseStatement(req)
	if err != nil && !errors.Is(err, ErrMissingStatement) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	return stmt, err
}

func (s *Service) parseStatement(req Request) (*parser.Result, error) {
	switch {
	case len(req.Content) > 0:
		name := req.Filename
		if name == "" {
			name = "statement.csv"
		}
		return s.parser.ProcessBytes(req.Content, name)
	case req.FilePath != "":
		return s.parser.ProcessFile(req.FilePath)
	default:
		return nil, ErrMissingStatement
	}
}

// fetchWindow lists ledger transactions around the statement period, padded
// by the date tolerance on both sides. Only the unpadded period is offered to
// the unclear step.
func (s *Service) fetchWindow(ctx context.Context, budgetID, accountID string, bank []models.BankTransaction) ([]models.LedgerTransaction, error) {
	if len(bank) == 0 {
		return s.ledger.ListTransactions(ctx, budgetID, accountID, nil)
	}

	period := reconcile.StatementPeriod(bank)
	pad := time.Duration(s.matching.DateToleranceDays) * 24 * time.Hour
	since := period.From.Add(-pad)
	until := period.To.Add(pad)

	txns, err := s.ledger.ListTransactions(ctx, budgetID, accountID, &since)
	if err != nil {
		return nil, err
	}
	out := make([]models.LedgerTransaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.After(until) {
			continue
		}
		out = append(out, t)
	}
	s.logger.Debug("ledger window", "since", since.Format(models.DateLayout), "until", until.Format(models.DateLayout), "fetched", len(txns), "kept", len(out))
	return out, nil
}

func (s *Service) Budgets(ctx context.Context) ([]models.Budget, error) {
	return s.ledger.ListBudgets(ctx)
}

func (s *Service) Accounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	return s.ledger.ListAccounts(ctx, budgetID)
}
