package models

import (
	"time"

	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

// DateLayout is the calendar-date layout used across the ledger API.
const DateLayout = "2006-01-02"

// ClearedStatus mirrors the ledger's clearing states.
type ClearedStatus string

const (
	Uncleared  ClearedStatus = "uncleared"
	Cleared    ClearedStatus = "cleared"
	Reconciled ClearedStatus = "reconciled"
)

// IsCleared reports whether the bank has processed the transaction.
func (s ClearedStatus) IsCleared() bool {
	return s == Cleared || s == Reconciled
}

// BankTransaction is one row of a bank statement.
type BankTransaction struct {
	ID     string           `json:"id"`
	Date   time.Time        `json:"date"`
	Amount money.Milliunits `json:"amount"`
	Payee  string           `json:"payee"`
	Memo   string           `json:"memo,omitempty"`
	// Row is the 1-based line of the statement file the transaction came from.
	Row int `json:"original_csv_row"`
}

// DateString returns the transaction date as YYYY-MM-DD.
func (t BankTransaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// CSVRecord renders the transaction as a YNAB import row.
func (t BankTransaction) CSVRecord() []string {
	return []string{t.DateString(), t.Payee, t.Memo, t.Amount.String()}
}

// LedgerTransaction is a transaction as recorded in the budget.
type LedgerTransaction struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id,omitempty"`
	Date         time.Time        `json:"date"`
	Amount       money.Milliunits `json:"amount"`
	PayeeID      *string          `json:"payee_id,omitempty"`
	PayeeName    *string          `json:"payee_name,omitempty"`
	CategoryID   *string          `json:"category_id,omitempty"`
	CategoryName *string          `json:"category_name,omitempty"`
	Cleared      ClearedStatus    `json:"cleared"`
	Approved     bool             `json:"approved"`
	Memo         *string          `json:"memo,omitempty"`
	Deleted      bool             `json:"deleted,omitempty"`
}

// Payee returns the payee name or "" when unset.
func (t LedgerTransaction) Payee() string {
	return deref(t.PayeeName)
}

// MemoText returns the memo or "" when unset.
func (t LedgerTransaction) MemoText() string {
	return deref(t.Memo)
}

// DateString returns the transaction date as YYYY-MM-DD.
func (t LedgerTransaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// AccountSnapshot holds the balances of an account at a point in time.
type AccountSnapshot struct {
	Balance          money.Milliunits `json:"balance"`
	ClearedBalance   money.Milliunits `json:"cleared_balance"`
	UnclearedBalance money.Milliunits `json:"uncleared_balance"`
}

// NewTransaction is the payload for creating a ledger transaction.
type NewTransaction struct {
	AccountID string
	Date      time.Time
	Amount    money.Milliunits
	PayeeName *string
	Memo      *string
	Cleared   ClearedStatus
	Approved  bool
}

// TransactionUpdate is the full replacement payload for an existing ledger
// transaction. Fields the caller does not intend to change must be carried
// forward from the current transaction.
type TransactionUpdate struct {
	AccountID  string
	Date       time.Time
	Amount     money.Milliunits
	PayeeID    *string
	PayeeName  *string
	CategoryID *string
	Memo       *string
	Cleared    ClearedStatus
	Approved   bool
}

// UpdateFrom starts an update that leaves every field of t unchanged.
func UpdateFrom(t LedgerTransaction) TransactionUpdate {
	return TransactionUpdate{
		AccountID:  t.AccountID,
		Date:       t.Date,
		Amount:     t.Amount,
		PayeeID:    t.PayeeID,
		PayeeName:  t.PayeeName,
		CategoryID: t.CategoryID,
		Memo:       t.Memo,
		Cleared:    t.Cleared,
		Approved:   t.Approved,
	}
}

// StringPtr returns nil for "" and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
