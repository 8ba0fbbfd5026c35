package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yurifrl/ynab-reconciler/pkg/csv"
	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/plan"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
)

var (
	cfgFile      string
	outputFormat string
	cliFilters   filters
	stmtFlags    statementFlags
	execFlags    executors.Options
	live         bool
)

var rootCmd = &cobra.Command{
	Use:           "ynab-reconciler",
	Short:         "Reconcile bank statements against YNAB accounts",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <statement>",
	Short: "Match a statement against YNAB and explain the balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := reconcileStatement(cmd, args[0], false)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), resp)
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute [flags] <statement>",
	Short: "Analyze a statement and apply the corrective actions (dry run unless --apply)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := reconcileStatement(cmd, args[0], true)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), resp)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [flags] <statement>",
	Short: "Print the statement rows missing from YNAB as an importable CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := cliFilters.toFilter()
		if err != nil {
			return err
		}
		resp, err := reconcileStatement(cmd, args[0], false)
		if err != nil {
			return err
		}
		out, err := csv.Create(resp.Analysis.UnmatchedBankTransactions(), filter.Func())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <plan_file>",
	Short: "Preview a YAML plan of statements (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, args[0], true)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <plan_file>",
	Short: "Apply a YAML plan of statements to YNAB",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, args[0], false)
	},
}

func reconcileStatement(cmd *cobra.Command, path string, execute bool) (*service.Response, error) {
	a, err := newApp(cmd, "")
	if err != nil {
		return nil, err
	}
	budgetID, err := a.budgetID(stmtFlags.budgetID)
	if err != nil {
		return nil, err
	}
	if stmtFlags.accountID == "" {
		return nil, fmt.Errorf("--account is required")
	}
	balance, err := stmtFlags.balanceValue()
	if err != nil {
		return nil, err
	}
	date, err := stmtFlags.dateValue()
	if err != nil {
		return nil, err
	}

	opts := execFlags
	opts.DryRun = !live
	tick, done := progress(cmd.ErrOrStderr(), opts.DryRun || !execute)
	opts.OnAction = tick
	defer done()

	return a.svc.Reconcile(cmd.Context(), service.Request{
		BudgetID:         budgetID,
		AccountID:        stmtFlags.accountID,
		FilePath:         path,
		StatementBalance: balance,
		StatementDate:    date,
		Execute:          execute,
		Options:          opts,
	})
}

func runPlan(cmd *cobra.Command, path string, dryRun bool) error {
	p, err := plan.Load(path)
	if err != nil {
		return err
	}
	var planToken string
	if p.YNAB.TokenEnv != "" {
		planToken = os.Getenv(p.YNAB.TokenEnv)
	}
	a, err := newApp(cmd, planToken)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Plan %s\n", path)
	p.Print(w)

	base := executors.DefaultOptions()
	base.DryRun = dryRun
	tick, done := progress(cmd.ErrOrStderr(), dryRun)
	base.OnAction = tick
	runs, runErr := a.svc.RunPlan(cmd.Context(), p, base)
	done()

	for _, run := range runs {
		fmt.Fprintf(w, "\n== %s -> %s\n", run.Statement.Label(), run.AccountID)
		if run.Err != nil {
			fmt.Fprintf(w, "failed: %v\n", run.Err)
			continue
		}
		if err := output(w, run.Response); err != nil {
			return err
		}
	}
	return runErr
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")
	pf.StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or pp")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("token", "", "YNAB personal access token")
	pf.Int("requests-per-hour", 0, "YNAB request budget per hour")
	pf.Int("auto-match-threshold", 0, "Score at or above which a match is applied automatically")
	pf.Int("suggestion-threshold", 0, "Score at or above which a match is suggested")
	pf.Int("date-tolerance-days", 0, "Maximum date distance between matched transactions")

	for _, c := range []*cobra.Command{analyzeCmd, executeCmd, exportCmd} {
		c.Flags().StringVar(&stmtFlags.budgetID, "budget-id", "", "YNAB budget id")
		c.Flags().StringVarP(&stmtFlags.accountID, "account", "a", "", "YNAB account id")
		c.Flags().StringVarP(&stmtFlags.balance, "balance", "b", "", "Statement closing balance, e.g. -1234.56")
		c.Flags().StringVarP(&stmtFlags.date, "date", "d", "", "Statement date (YYYY-MM-DD)")
	}

	defaults := executors.DefaultOptions()
	executeCmd.Flags().BoolVar(&live, "apply", false, "Write changes to YNAB instead of a dry run")
	executeCmd.Flags().BoolVar(&execFlags.AutoCreateTransactions, "create", defaults.AutoCreateTransactions, "Create transactions missing from YNAB")
	executeCmd.Flags().BoolVar(&execFlags.AutoUpdateClearedStatus, "clear", defaults.AutoUpdateClearedStatus, "Mark matched transactions as cleared")
	executeCmd.Flags().BoolVar(&execFlags.AutoUnclearMissing, "unclear", defaults.AutoUnclearMissing, "Unclear cleared transactions not on the statement")
	executeCmd.Flags().BoolVar(&execFlags.AutoAdjustDates, "adjust-dates", defaults.AutoAdjustDates, "Move matched transactions to the bank date")

	// Filter flags for export
	exportCmd.Flags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&cliFilters.minAmount, "min", "", "Minimum amount")
	exportCmd.Flags().StringVar(&cliFilters.maxAmount, "max", "", "Maximum amount")
	exportCmd.Flags().StringVar(&cliFilters.payee, "payee", "", "Filter by payee (case insensitive)")

	rootCmd.AddCommand(analyzeCmd, executeCmd, exportCmd, planCmd, applyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
