package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

const (
	maxInsights   = 5
	maxNearMatch  = 3
	repeatMinimum = 2
	repeatSevere  = 4

	manyUnmatched   = 5
	severeUnmatched = 10
)

var (
	discrepancyNotice = money.Milliunits(1 * money.PerUnit)
	discrepancySevere = money.Milliunits(100 * money.PerUnit)
)

func buildInsights(a *Analysis, cfg matcher.Config) []Insight {
	var out []Insight
	seen := map[string]struct{}{}
	add := func(in Insight) {
		if len(out) >= maxInsights {
			return
		}
		if _, ok := seen[in.ID]; ok {
			return
		}
		seen[in.ID] = struct{}{}
		out = append(out, in)
	}

	if in, ok := repeatAmountInsight(a.UnmatchedBank); ok {
		add(in)
	}
	for _, in := range nearMatchInsights(a, cfg) {
		add(in)
	}
	for _, in := range anomalyInsights(a) {
		add(in)
	}
	if out == nil {
		return []Insight{}
	}
	return out
}

// repeatAmountInsight reports the largest group of unmatched bank rows that
// share an exact amount.
func repeatAmountInsight(unmatched []matcher.TransactionMatch) (Insight, bool) {
	groups := map[money.Milliunits][]matcher.TransactionMatch{}
	var order []money.Milliunits
	for _, m := range unmatched {
		amt := m.BankTransaction.Amount
		if _, ok := groups[amt]; !ok {
			order = append(order, amt)
		}
		groups[amt] = append(groups[amt], m)
	}

	var best money.Milliunits
	bestCount := 0
	for _, amt := range order {
		if n := len(groups[amt]); n > bestCount {
			best, bestCount = amt, n
		}
	}
	if bestCount < repeatMinimum {
		return Insight{}, false
	}

	rows := make([]int, 0, bestCount)
	dates := make([]string, 0, bestCount)
	for _, m := range groups[best] {
		rows = append(rows, m.BankTransaction.Row)
		dates = append(dates, m.BankTransaction.DateString())
	}

	severity := Warning
	if bestCount >= repeatSevere {
		severity = Critical
	}
	return Insight{
		ID:       fmt.Sprintf("repeat-%d", best),
		Type:     RepeatAmount,
		Severity: severity,
		Title:    fmt.Sprintf("%d unmatched transactions of %s", bestCount, best.Display("$")),
		Description: fmt.Sprintf("The statement has %d unmatched transactions of %s (rows %s). Recurring charges or duplicates are likely; check each one before adding it.",
			bestCount, best.Display("$"), joinInts(rows)),
		Evidence: map[string]any{
			"amount": best,
			"count":  bestCount,
			"rows":   rows,
			"dates":  dates,
		},
	}, true
}

// nearMatchInsights flags matches whose best candidate fell just short of a
// threshold.
func nearMatchInsights(a *Analysis, cfg matcher.Config) []Insight {
	var out []Insight
	check := func(m matcher.TransactionMatch, threshold int) {
		if len(out) >= maxNearMatch {
			return
		}
		top, ok := m.TopCandidate()
		if !ok {
			return
		}
		gap := threshold - top.ConfidenceScore
		if gap <= 0 || gap > cfg.NearMatchBand {
			return
		}
		b := m.BankTransaction
		lt := top.LedgerTransaction
		out = append(out, Insight{
			ID:       "near-" + b.ID,
			Type:     NearMatch,
			Severity: Info,
			Title:    fmt.Sprintf("Possible match for %s %s", b.Payee, b.Amount.Display("$")),
			Description: fmt.Sprintf("Bank %s %s %q is %d%% similar to YNAB %s %s %q (%s).",
				b.DateString(), b.Amount.Display("$"), b.Payee,
				top.ConfidenceScore,
				lt.DateString(), lt.Amount.Display("$"), lt.Payee(),
				top.MatchReason),
			Evidence: map[string]any{
				"bank_transaction_id": b.ID,
				"ynab_transaction_id": lt.ID,
				"confidence_score":    top.ConfidenceScore,
				"row":                 b.Row,
			},
		})
	}

	for _, m := range a.SuggestedMatches {
		check(m, cfg.AutoMatchThreshold)
	}
	for _, m := range a.UnmatchedBank {
		check(m, cfg.SuggestionThreshold)
	}
	return out
}

func anomalyInsights(a *Analysis) []Insight {
	var out []Insight

	if d := a.BalanceInfo.Discrepancy; d.Abs() >= discrepancyNotice {
		severity := Warning
		if d.Abs() >= discrepancySevere {
			severity = Critical
		}
		out = append(out, Insight{
			ID:          "anomaly-discrepancy",
			Type:        Anomaly,
			Severity:    severity,
			Title:       fmt.Sprintf("Cleared balance differs from statement by %s", d.Display("$")),
			Description: a.Summary.DiscrepancyExplanation,
			Evidence: map[string]any{
				"current_cleared":  a.BalanceInfo.CurrentCleared,
				"target_statement": a.BalanceInfo.TargetStatement,
				"discrepancy":      d,
			},
		})
	}

	if n := len(a.UnmatchedBank); n >= manyUnmatched {
		severity := Warning
		if n >= severeUnmatched {
			severity = Critical
		}
		out = append(out, Insight{
			ID:          "anomaly-unmatched-bank",
			Type:        Anomaly,
			Severity:    severity,
			Title:       fmt.Sprintf("%d bank transactions have no match", n),
			Description: "Many statement rows have no ledger counterpart. Check that the statement belongs to this account and that the date range overlaps the ledger.",
			Evidence:    map[string]any{"count": n},
		})
	}
	return out
}

func joinInts(v []int) string {
	sorted := append([]int(nil), v...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
