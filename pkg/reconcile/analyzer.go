package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/parser"
)

// ErrNoParseableRows is returned when a statement has rows but none of them
// could be parsed.
var ErrNoParseableRows = errors.New("no statement rows could be parsed")

// Request carries everything besides the statement that an analysis needs.
type Request struct {
	Ledger           []models.LedgerTransaction
	StatementBalance money.Milliunits
	// Account, when set, supplies the cleared and uncleared balances instead
	// of summing Ledger, which may only cover the statement window.
	Account *models.AccountSnapshot
	Config  matcher.Config
	// Period, when set, limits UnmatchedYNAB to ledger transactions dated
	// inside it. Transactions outside it are still matching candidates.
	Period *Period
}

// Period is an inclusive date range.
type Period struct {
	From time.Time
	To   time.Time
}

// StatementPeriod spans the earliest and latest bank transaction dates. It
// returns nil when there are no transactions.
func StatementPeriod(bank []models.BankTransaction) *Period {
	if len(bank) == 0 {
		return nil
	}
	p := &Period{From: bank[0].Date, To: bank[0].Date}
	for _, b := range bank[1:] {
		if b.Date.Before(p.From) {
			p.From = b.Date
		}
		if b.Date.After(p.To) {
			p.To = b.Date
		}
	}
	return p
}

func (p *Period) Contains(t time.Time) bool {
	return p == nil || (!t.Before(p.From) && !t.After(p.To))
}

// AnalyzeCSV parses CSV statement content and analyzes it.
func AnalyzeCSV(p *parser.Parser, content string, req Request) (*Analysis, error) {
	stmt, err := p.ParseAuto(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	return AnalyzeStatement(stmt, req)
}

// AnalyzeFile reads a statement file of any supported format and analyzes it.
func AnalyzeFile(p *parser.Parser, path string, req Request) (*Analysis, error) {
	stmt, err := p.ProcessFile(path)
	if err != nil {
		return nil, err
	}
	return AnalyzeStatement(stmt, req)
}

// AnalyzeStatement analyzes an already parsed statement. It fails with
// ErrNoParseableRows when every row was rejected.
func AnalyzeStatement(stmt *parser.Result, req Request) (*Analysis, error) {
	if len(stmt.Transactions) == 0 && len(stmt.Skipped) > 0 {
		return nil, fmt.Errorf("%w: %d row(s) rejected, first: %v", ErrNoParseableRows, len(stmt.Skipped), stmt.Skipped[0])
	}
	return Analyze(stmt.Transactions, stmt.Skipped, req), nil
}

// Analyze matches bank transactions against the ledger and derives balances,
// summary, next steps and insights. It is a pure function of its inputs.
func Analyze(bank []models.BankTransaction, skipped []parser.RowError, req Request) *Analysis {
	ledger := make([]models.LedgerTransaction, 0, len(req.Ledger))
	for _, lt := range req.Ledger {
		if !lt.Deleted {
			ledger = append(ledger, lt)
		}
	}

	a := &Analysis{
		AutoMatches:      []matcher.TransactionMatch{},
		SuggestedMatches: []matcher.TransactionMatch{},
		UnmatchedBank:    []matcher.TransactionMatch{},
		UnmatchedYNAB:    []models.LedgerTransaction{},
		SkippedRows:      skipped,
	}

	matched := map[string]struct{}{}
	for _, m := range matcher.FindMatches(bank, ledger, req.Config) {
		switch m.Confidence {
		case matcher.High:
			a.AutoMatches = append(a.AutoMatches, m)
			matched[m.LedgerTransaction.ID] = struct{}{}
		case matcher.Medium:
			a.SuggestedMatches = append(a.SuggestedMatches, m)
		default:
			a.UnmatchedBank = append(a.UnmatchedBank, m)
		}
	}
	for _, lt := range ledger {
		if _, ok := matched[lt.ID]; !ok && req.Period.Contains(lt.Date) {
			a.UnmatchedYNAB = append(a.UnmatchedYNAB, lt)
		}
	}

	a.BalanceInfo = computeBalance(ledger, req.Account, req.StatementBalance)
	a.Summary = summarize(a, bank, ledger)
	a.NextSteps = nextSteps(a.Summary)
	a.Insights = buildInsights(a, req.Config)
	return a
}

func statementRange(bank []models.BankTransaction) (string, string) {
	if len(bank) == 0 {
		return "", ""
	}
	dates := make([]string, 0, len(bank))
	for _, b := range bank {
		dates = append(dates, b.DateString())
	}
	sort.Strings(dates)
	return dates[0], dates[len(dates)-1]
}
