package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/ynab-reconciler/pkg/config"
	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/render"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
	"github.com/yurifrl/ynab-reconciler/pkg/ynab"
)

var errNoToken = errors.New("YNAB token required: set --token, ynab.token or YNAB_RECONCILER_YNAB_TOKEN")

type app struct {
	cfg    *config.Config
	logger *log.Logger
	svc    *service.Service
}

// newApp loads configuration and wires the YNAB client into a service.
// fallbackToken is used when configuration carries no token.
func newApp(cmd *cobra.Command, fallbackToken string) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ynab-reconciler",
		Level:           cfg.Level(),
	})

	token := cfg.YNAB.Token
	if token == "" {
		token = fallbackToken
	}
	if token == "" {
		return nil, errNoToken
	}

	client := ynab.New(logger, token, ynab.Options{
		RequestsPerHour: cfg.YNAB.RequestsPerHour,
		CacheTTL:        cfg.YNAB.CacheTTL,
	})
	return &app{
		cfg:    cfg,
		logger: logger,
		svc:    service.New(logger, client, cfg.Matching),
	}, nil
}

func (a *app) budgetID(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.YNAB.BudgetID != "" {
		return a.cfg.YNAB.BudgetID, nil
	}
	return "", errors.New("budget id required: set --budget-id or ynab.budget_id")
}

// progress returns an OnAction callback that ticks a spinner for live runs.
func progress(w io.Writer, dryRun bool) (func(executors.ActionRecord), func()) {
	if dryRun {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("writing to YNAB"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	tick := func(rec executors.ActionRecord) {
		bar.Describe(string(rec.Type))
		_ = bar.Add(1)
	}
	done := func() {
		_ = bar.Finish()
	}
	return tick, done
}

func output(w io.Writer, resp *service.Response) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "pp":
		return render.Dump(w, resp)
	case "text", "":
		render.Analysis(w, resp.Analysis, resp.Currency)
		if resp.Execution != nil {
			fmt.Fprintln(w)
			render.Execution(w, resp.Execution, resp.Currency)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
