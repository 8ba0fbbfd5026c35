// Package reconcile compares a parsed bank statement with the ledger's
// transactions for the same account and explains what is needed to make the
// cleared balance agree with the statement.
package reconcile

import (
	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/parser"
)

type InsightType string

const (
	RepeatAmount InsightType = "repeat_amount"
	NearMatch    InsightType = "near_match"
	Anomaly      InsightType = "anomaly"
)

type Severity string

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

type Insight struct {
	ID          string         `json:"id"`
	Type        InsightType    `json:"type"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// BalanceInfo compares the ledger's cleared balance with the statement.
// CurrentTotal is always CurrentCleared + CurrentUncleared and Discrepancy is
// always CurrentCleared - TargetStatement.
type BalanceInfo struct {
	CurrentCleared   money.Milliunits `json:"current_cleared"`
	CurrentUncleared money.Milliunits `json:"current_uncleared"`
	CurrentTotal     money.Milliunits `json:"current_total"`
	TargetStatement  money.Milliunits `json:"target_statement"`
	Discrepancy      money.Milliunits `json:"discrepancy"`
	OnTrack          bool             `json:"on_track"`
}

type Summary struct {
	StatementFrom          string `json:"statement_from,omitempty"`
	StatementTo            string `json:"statement_to,omitempty"`
	BankTransactions       int    `json:"bank_transactions_count"`
	YNABTransactions       int    `json:"ynab_transactions_count"`
	AutoMatched            int    `json:"auto_matched"`
	NeedsClearing          int    `json:"needs_clearing"`
	SuggestedMatches       int    `json:"suggested_matches"`
	UnmatchedBank          int    `json:"unmatched_bank"`
	UnmatchedYNAB          int    `json:"unmatched_ynab"`
	SkippedRows            int    `json:"skipped_rows"`
	DiscrepancyExplanation string `json:"discrepancy_explanation"`
}

// Analysis is the full result of one reconciliation analysis. It is built
// once and not modified afterwards.
type Analysis struct {
	Summary          Summary                    `json:"summary"`
	AutoMatches      []matcher.TransactionMatch `json:"auto_matches"`
	SuggestedMatches []matcher.TransactionMatch `json:"suggested_matches"`
	UnmatchedBank    []matcher.TransactionMatch `json:"unmatched_bank"`
	UnmatchedYNAB    []models.LedgerTransaction `json:"unmatched_ynab"`
	BalanceInfo      BalanceInfo                `json:"balance_info"`
	NextSteps        []string                   `json:"next_steps"`
	Insights         []Insight                  `json:"insights"`
	SkippedRows      []parser.RowError          `json:"skipped_rows,omitempty"`
}

// UnmatchedBankTransactions returns the bank side of every unmatched entry.
func (a *Analysis) UnmatchedBankTransactions() []models.BankTransaction {
	out := make([]models.BankTransaction, 0, len(a.UnmatchedBank))
	for _, m := range a.UnmatchedBank {
		out = append(out, m.BankTransaction)
	}
	return out
}
