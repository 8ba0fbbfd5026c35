// Package render formats analyses and execution results for terminals.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
)

var symbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"BRL": "R$",
}

// Symbol returns the display symbol for an ISO currency code.
func Symbol(code string) string {
	if s, ok := symbols[strings.ToUpper(code)]; ok {
		return s
	}
	if code == "" {
		return "$"
	}
	return code + " "
}

// Analysis writes a human-readable report of a.
func Analysis(w io.Writer, a *reconcile.Analysis, currency string) {
	sym := Symbol(currency)
	amt := func(m money.Milliunits) string { return m.Display(sym) }
	s := a.Summary

	fmt.Fprintln(w, titleStyle.Render("Reconciliation analysis"))
	if s.StatementFrom != "" {
		fmt.Fprintf(w, "Statement %s to %s, %d bank and %d YNAB transactions\n", s.StatementFrom, s.StatementTo, s.BankTransactions, s.YNABTransactions)
	}

	b := a.BalanceInfo
	fmt.Fprintln(w, headingStyle.Render("Balance"))
	fmt.Fprintf(w, "  cleared    %s\n", amt(b.CurrentCleared))
	fmt.Fprintf(w, "  uncleared  %s\n", amt(b.CurrentUncleared))
	fmt.Fprintf(w, "  total      %s\n", amt(b.CurrentTotal))
	fmt.Fprintf(w, "  statement  %s\n", amt(b.TargetStatement))
	if b.OnTrack {
		fmt.Fprintln(w, "  "+successStyle.Render(s.DiscrepancyExplanation))
	} else {
		fmt.Fprintln(w, "  "+warningStyle.Render(s.DiscrepancyExplanation))
	}

	section(w, "Auto matches", len(a.AutoMatches))
	for _, m := range a.AutoMatches {
		fmt.Fprintf(w, "  %s %s\n", successStyle.Render("✓"), matchLine(m, amt))
	}

	section(w, "Suggested matches", len(a.SuggestedMatches))
	for _, m := range a.SuggestedMatches {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("?"), matchLine(m, amt))
		for _, c := range m.Candidates {
			lt := c.LedgerTransaction
			fmt.Fprintf(w, "      %s %s %s %q (%d) %s\n", subtleStyle.Render("→"), lt.DateString(), amt(lt.Amount), lt.Payee(), c.ConfidenceScore, subtleStyle.Render(c.Explanation))
		}
	}

	section(w, "Missing from YNAB", len(a.UnmatchedBank))
	for _, m := range a.UnmatchedBank {
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("+"), matchLine(m, amt))
	}

	section(w, "Not on statement", len(a.UnmatchedYNAB))
	for _, lt := range a.UnmatchedYNAB {
		fmt.Fprintf(w, "  %s %s %s %q [%s]\n", errorStyle.Render("-"), lt.DateString(), amt(lt.Amount), lt.Payee(), lt.Cleared)
	}

	if len(a.SkippedRows) > 0 {
		section(w, "Skipped rows", len(a.SkippedRows))
		for _, r := range a.SkippedRows {
			fmt.Fprintf(w, "  row %d: %s\n", r.Row, r.Reason)
		}
	}

	if len(a.Insights) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Insights"))
		for _, in := range a.Insights {
			fmt.Fprintf(w, "  %s %s: %s\n", severity(in.Severity), in.Title, in.Description)
		}
	}

	fmt.Fprintln(w, headingStyle.Render("Next steps"))
	for i, step := range a.NextSteps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
}

// Execution writes a human-readable report of res.
func Execution(w io.Writer, res *executors.ExecutionResult, currency string) {
	sym := Symbol(currency)
	s := res.Summary

	title := "Reconciliation applied"
	if s.DryRun {
		title = "Reconciliation plan (dry run)"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "created %d, updated %d (dates %d), uncleared %d, failed %d\n",
		s.TransactionsCreated, s.TransactionsUpdated, s.DatesAdjusted, s.TransactionsUncleared, s.Failures)

	section(w, "Actions", len(res.ActionsTaken))
	for _, a := range res.ActionsTaken {
		fmt.Fprintf(w, "  %s %s\n", status(a.Status), a.Description)
	}

	before, after := res.AccountBalance.Before, res.AccountBalance.After
	fmt.Fprintln(w, headingStyle.Render("Account"))
	fmt.Fprintf(w, "  cleared  %s → %s\n", before.ClearedBalance.Display(sym), after.ClearedBalance.Display(sym))
	fmt.Fprintf(w, "  balance  %s → %s\n", before.Balance.Display(sym), after.Balance.Display(sym))

	if br := res.BalanceReconciliation; br != nil {
		fmt.Fprintln(w, headingStyle.Render("Statement balance"))
		line := fmt.Sprintf("%s as of %s: cleared %s, statement %s, difference %s", br.Status, br.StatementDate,
			br.ClearedBalance.Display(sym), br.StatementBalance.Display(sym), br.Difference.Display(sym))
		if br.Status == executors.PerfectlyReconciled {
			fmt.Fprintln(w, "  "+successStyle.Render(line))
		} else {
			fmt.Fprintln(w, "  "+warningStyle.Render(line))
		}
		for _, c := range br.LikelyCauses {
			fmt.Fprintf(w, "  - %.0f%% %s. %s\n", c.Confidence*100, c.Description, subtleStyle.Render(c.SuggestedResolution))
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Recommendations"))
		for _, r := range res.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}
}

// Dump pretty-prints v without colors.
func Dump(w io.Writer, v any) error {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(false)
	_, err := printer.Println(v)
	return err
}

func section(w io.Writer, name string, n int) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%s (%d)", name, n)))
}

func matchLine(m matcher.TransactionMatch, amt func(money.Milliunits) string) string {
	b := m.BankTransaction
	line := fmt.Sprintf("%s %s %q", b.DateString(), amt(b.Amount), b.Payee)
	if m.ConfidenceScore > 0 {
		line += fmt.Sprintf(" (%d)", m.ConfidenceScore)
	}
	if m.MatchReason != "" {
		line += " " + subtleStyle.Render(m.MatchReason)
	}
	return line
}

func severity(s reconcile.Severity) string {
	switch s {
	case reconcile.Critical:
		return errorStyle.Render("!!")
	case reconcile.Warning:
		return warningStyle.Render("!")
	default:
		return infoStyle.Render("i")
	}
}

func status(s executors.ActionStatus) string {
	switch s {
	case executors.Applied:
		return successStyle.Render("✓")
	case executors.Failed:
		return errorStyle.Render("✗")
	default:
		return subtleStyle.Render("~")
	}
}
