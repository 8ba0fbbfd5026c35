package reconcile

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/parser"
)

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func ledgerTxn(id, date string, amount money.Milliunits, p string, cleared models.ClearedStatus) models.LedgerTransaction {
	return models.LedgerTransaction{ID: id, Date: day(date), Amount: amount, PayeeName: models.StringPtr(p), Cleared: cleared}
}

func bankTxn(id string, row int, date string, amount money.Milliunits, p string) models.BankTransaction {
	return models.BankTransaction{ID: id, Row: row, Date: day(date), Amount: amount, Payee: p}
}

func newParser() *parser.Parser {
	return parser.New(log.New(io.Discard))
}

func insightsOf(a *Analysis, typ InsightType) []Insight {
	var out []Insight
	for _, in := range a.Insights {
		if in.Type == typ {
			out = append(out, in)
		}
	}
	return out
}

func TestRepeatAmountInsight(t *testing.T) {
	bank := []models.BankTransaction{
		bankTxn("b1", 2, "2025-10-01", -22220, "PARKING"),
		bankTxn("b2", 3, "2025-10-08", -22220, "PARKING"),
		bankTxn("b3", 4, "2025-10-15", -22220, "PARKING"),
	}

	a := Analyze(bank, nil, Request{Config: matcher.DefaultConfig()})
	require.Len(t, a.UnmatchedBank, 3)

	repeats := insightsOf(a, RepeatAmount)
	require.Len(t, repeats, 1)
	assert.Equal(t, Warning, repeats[0].Severity)
	assert.Equal(t, []int{2, 3, 4}, repeats[0].Evidence["rows"])
	assert.Equal(t, 3, repeats[0].Evidence["count"])
	assert.Contains(t, repeats[0].Description, "rows 2, 3, 4")
	assert.Len(t, a.Insights, 1)
}

func TestRepeatAmountCriticalAtFour(t *testing.T) {
	var bank []models.BankTransaction
	for i, d := range []string{"2025-10-01", "2025-10-02", "2025-10-03", "2025-10-04"} {
		bank = append(bank, bankTxn(d, i+2, d, -5000, "TOLL"))
	}

	a := Analyze(bank, nil, Request{Config: matcher.DefaultConfig()})
	repeats := insightsOf(a, RepeatAmount)
	require.Len(t, repeats, 1)
	assert.Equal(t, Critical, repeats[0].Severity)
}

func TestBalancedStatement(t *testing.T) {
	ledger := []models.LedgerTransaction{
		ledgerTxn("l1", "2025-10-01", -10000, "Grocer", models.Cleared),
		ledgerTxn("l2", "2025-10-02", 5000, "Refund", models.Reconciled),
		ledgerTxn("l3", "2025-10-03", -3000, "Cafe", models.Uncleared),
	}
	bank := []models.BankTransaction{
		bankTxn("b1", 2, "2025-10-01", -10000, "Grocer"),
		bankTxn("b2", 3, "2025-10-02", 5000, "Refund"),
	}

	a := Analyze(bank, nil, Request{Ledger: ledger, StatementBalance: -5000, Config: matcher.DefaultConfig()})

	assert.True(t, a.BalanceInfo.OnTrack)
	assert.Zero(t, a.BalanceInfo.Discrepancy)
	assert.Equal(t, money.Milliunits(-5000), a.BalanceInfo.CurrentCleared)
	assert.Equal(t, money.Milliunits(-3000), a.BalanceInfo.CurrentUncleared)
	assert.Equal(t, BalancesMatch, a.Summary.DiscrepancyExplanation)
	assert.Empty(t, insightsOf(a, Anomaly))

	assert.Len(t, a.AutoMatches, 2)
	require.Len(t, a.UnmatchedYNAB, 1)
	assert.Equal(t, "l3", a.UnmatchedYNAB[0].ID)
	assert.Equal(t, []string{"Review 1 YNAB transaction(s) not on the statement"}, a.NextSteps)
}

func TestBalanceIdentity(t *testing.T) {
	cases := []Request{
		{Ledger: []models.LedgerTransaction{ledgerTxn("l1", "2025-10-01", -10000, "A", models.Cleared)}, StatementBalance: 7000},
		{Ledger: []models.LedgerTransaction{ledgerTxn("l1", "2025-10-01", -10000, "A", models.Uncleared)}, StatementBalance: -10000},
		{Account: &models.AccountSnapshot{Balance: 1500, ClearedBalance: 1000, UnclearedBalance: 500}, StatementBalance: 995},
	}
	for _, req := range cases {
		req.Config = matcher.DefaultConfig()
		b := Analyze(nil, nil, req).BalanceInfo
		assert.Equal(t, b.CurrentCleared+b.CurrentUncleared, b.CurrentTotal)
		assert.Equal(t, b.CurrentCleared-b.TargetStatement, b.Discrepancy)
	}
}

func TestOnTrackWithinOneCent(t *testing.T) {
	req := Request{Account: &models.AccountSnapshot{ClearedBalance: 1009}, StatementBalance: 1000, Config: matcher.DefaultConfig()}
	assert.True(t, Analyze(nil, nil, req).BalanceInfo.OnTrack)

	req.StatementBalance = 990
	assert.False(t, Analyze(nil, nil, req).BalanceInfo.OnTrack)
}

func TestDiscrepancyExplanation(t *testing.T) {
	ledger := []models.LedgerTransaction{
		ledgerTxn("l1", "2025-10-01", -10000, "Grocer", models.Uncleared),
		ledgerTxn("l2", "2025-09-01", -4000, "Old", models.Cleared),
	}
	bank := []models.BankTransaction{
		bankTxn("b1", 2, "2025-10-01", -10000, "Grocer"),
		bankTxn("b2", 3, "2025-10-05", -50000, "Rent"),
	}

	a := Analyze(bank, nil, Request{Ledger: ledger, StatementBalance: -64000, Config: matcher.DefaultConfig()})

	assert.False(t, a.BalanceInfo.OnTrack)
	assert.Equal(t, money.Milliunits(60000), a.BalanceInfo.Discrepancy)
	assert.Equal(t, "Cleared balance is off by $60.00: clear 1 transaction(s), add 1 missing, review 1 unmatched ledger", a.Summary.DiscrepancyExplanation)
	assert.Equal(t, []string{
		"Mark 1 matched transaction(s) as cleared",
		"Add 1 bank transaction(s) missing from YNAB",
		"Review 1 YNAB transaction(s) not on the statement",
	}, a.NextSteps)

	anomalies := insightsOf(a, Anomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "anomaly-discrepancy", anomalies[0].ID)
	assert.Equal(t, Warning, anomalies[0].Severity)
}

func TestLargeDiscrepancyIsCritical(t *testing.T) {
	req := Request{Account: &models.AccountSnapshot{ClearedBalance: 0}, StatementBalance: 150000, Config: matcher.DefaultConfig()}
	a := Analyze(nil, nil, req)

	anomalies := insightsOf(a, Anomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, Critical, anomalies[0].Severity)
}

func TestAllMatchedFallback(t *testing.T) {
	a := Analyze(nil, nil, Request{Config: matcher.DefaultConfig()})
	assert.Equal(t, []string{AllMatched}, a.NextSteps)
	assert.Empty(t, a.Insights)
	assert.NotNil(t, a.Insights)
}

func TestInsightsCappedAtFive(t *testing.T) {
	bank := []models.BankTransaction{
		bankTxn("near1", 2, "2025-10-01", -1000, "Alpha"),
		bankTxn("near2", 3, "2025-10-01", -2000, "Bravo"),
		bankTxn("near3", 4, "2025-10-01", -3000, "Charlie"),
		bankTxn("r1", 5, "2025-10-01", -22220, "Lot"),
		bankTxn("r2", 6, "2025-10-02", -22220, "Lot"),
		bankTxn("u1", 7, "2025-10-03", -7000, "X"),
		bankTxn("u2", 8, "2025-10-03", -8000, "Y"),
		bankTxn("u3", 9, "2025-10-03", -9000, "Z"),
	}
	ledger := []models.LedgerTransaction{
		ledgerTxn("l1", "2025-10-03", -1000, "Alpha", models.Uncleared),
		ledgerTxn("l2", "2025-10-03", -2000, "Bravo", models.Uncleared),
		ledgerTxn("l3", "2025-10-03", -3000, "Charlie", models.Uncleared),
	}

	a := Analyze(bank, nil, Request{Ledger: ledger, StatementBalance: 500000, Config: matcher.DefaultConfig()})

	require.Len(t, a.SuggestedMatches, 3)
	require.Len(t, a.UnmatchedBank, 5)
	require.Len(t, a.Insights, 5)
	assert.Equal(t, "repeat--22220", a.Insights[0].ID)
	assert.Equal(t, "near-near1", a.Insights[1].ID)
	assert.Equal(t, "near-near2", a.Insights[2].ID)
	assert.Equal(t, "near-near3", a.Insights[3].ID)
	assert.Equal(t, "anomaly-discrepancy", a.Insights[4].ID)

	ids := map[string]bool{}
	for _, in := range a.Insights {
		assert.False(t, ids[in.ID])
		ids[in.ID] = true
	}
}

func TestManyUnmatchedAnomaly(t *testing.T) {
	var bank []models.BankTransaction
	for i := 0; i < 10; i++ {
		bank = append(bank, bankTxn("b", i+2, "2025-10-01", money.Milliunits(-1000*(i+1)), "Shop"))
	}
	a := Analyze(bank, nil, Request{Config: matcher.DefaultConfig()})

	anomalies := insightsOf(a, Anomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "anomaly-unmatched-bank", anomalies[0].ID)
	assert.Equal(t, Critical, anomalies[0].Severity)
}

func TestNoDoubleBookingAcrossBuckets(t *testing.T) {
	bank := []models.BankTransaction{
		bankTxn("b1", 2, "2025-10-01", -5000, "Coffee"),
		bankTxn("b2", 3, "2025-10-01", -5000, "Coffee"),
	}
	ledger := []models.LedgerTransaction{
		ledgerTxn("l1", "2025-10-01", -5000, "Coffee", models.Uncleared),
	}

	a := Analyze(bank, nil, Request{Ledger: ledger, Config: matcher.DefaultConfig()})
	assert.Len(t, a.AutoMatches, 1)
	assert.Len(t, a.UnmatchedBank, 1)
	assert.Empty(t, a.UnmatchedYNAB)
}

func TestAnalyzeCSVIsIdempotent(t *testing.T) {
	content := "Date,Amount,Description\n10/01/2025,-50.00,Coffee\n10/02/2025,-22.22,Parking\n10/03/2025,-22.22,Parking\n"
	req := Request{
		Ledger:           []models.LedgerTransaction{ledgerTxn("l1", "2025-10-01", -50000, "Coffee", models.Uncleared)},
		StatementBalance: -94440,
		Config:           matcher.DefaultConfig(),
	}

	first, err := AnalyzeCSV(newParser(), content, req)
	require.NoError(t, err)
	second, err := AnalyzeCSV(newParser(), content, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "2025-10-01", first.Summary.StatementFrom)
	assert.Equal(t, "2025-10-03", first.Summary.StatementTo)
}

func TestAnalyzeCSVRejectsUnparseableStatement(t *testing.T) {
	_, err := AnalyzeCSV(newParser(), "Date,Amount,Description\nfoo,bar,baz\n", Request{Config: matcher.DefaultConfig()})
	assert.ErrorIs(t, err, ErrNoParseableRows)

	_, err = AnalyzeCSV(newParser(), "", Request{Config: matcher.DefaultConfig()})
	assert.ErrorIs(t, err, parser.ErrEmptyContent)
}

func TestAnalyzeKeepsSkippedRows(t *testing.T) {
	content := "Date,Amount,Description\n10/01/2025,-50.00,Coffee\nbad,1,x\n"
	a, err := AnalyzeCSV(newParser(), content, Request{Config: matcher.DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, a.SkippedRows, 1)
	assert.Equal(t, 3, a.SkippedRows[0].Row)
	assert.Contains(t, a.NextSteps, "Check 1 statement row(s) that could not be parsed")
}

func TestPeriodLimitsUnmatchedLedger(t *testing.T) {
	bank := []models.BankTransaction{
		bankTxn("b1", 2, "2025-10-01", -5000, "Coffee"),
		bankTxn("b2", 3, "2025-10-05", -2000, "Parking"),
	}
	ledger := []models.LedgerTransaction{
		ledgerTxn("before", "2025-09-30", -120000, "Rent", models.Cleared),
		ledgerTxn("inside", "2025-10-03", -3000, "Lunch", models.Cleared),
		ledgerTxn("after", "2025-10-06", -2000, "Parking", models.Uncleared),
	}

	a := Analyze(bank, nil, Request{Ledger: ledger, Config: matcher.DefaultConfig(), Period: StatementPeriod(bank)})
	require.Len(t, a.AutoMatches, 1, "rows outside the period still match")
	assert.Equal(t, "after", a.AutoMatches[0].LedgerTransaction.ID)
	require.Len(t, a.UnmatchedYNAB, 1)
	assert.Equal(t, "inside", a.UnmatchedYNAB[0].ID)
	assert.Equal(t, 3, a.Summary.YNABTransactions)

	a = Analyze(bank, nil, Request{Ledger: ledger, Config: matcher.DefaultConfig()})
	assert.Len(t, a.UnmatchedYNAB, 2)
}

func TestStatementPeriod(t *testing.T) {
	assert.Nil(t, StatementPeriod(nil))

	p := StatementPeriod([]models.BankTransaction{
		bankTxn("b1", 2, "2025-10-05", -1, "x"),
		bankTxn("b2", 3, "2025-10-01", -1, "y"),
		bankTxn("b3", 4, "2025-10-03", -1, "z"),
	})
	require.NotNil(t, p)
	assert.Equal(t, day("2025-10-01"), p.From)
	assert.Equal(t, day("2025-10-05"), p.To)
	assert.True(t, p.Contains(day("2025-10-05")))
	assert.False(t, p.Contains(day("2025-09-30")))
}
