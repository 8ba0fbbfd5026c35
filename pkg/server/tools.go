package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/render"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
)

const (
	toolReconcileAccount = "reconcile_account"
	toolAnalyzeStatement = "analyze_statement"
)

// ToolArgs are the JSON arguments of both tools. Amounts are in major units.
type ToolArgs struct {
	BudgetID         string           `json:"budget_id"`
	AccountID        string           `json:"account_id"`
	CSVData          string           `json:"csv_data"`
	CSVFilePath      string           `json:"csv_file_path"`
	Filename         string           `json:"filename"`
	StatementBalance *decimal.Decimal `json:"statement_balance"`
	StatementDate    string           `json:"statement_date"`
	Format           string           `json:"format"`

	// reconcile_account only
	DryRun                  *bool `json:"dry_run"`
	AutoCreateTransactions  *bool `json:"auto_create_transactions"`
	AutoUpdateClearedStatus *bool `json:"auto_update_cleared_status"`
	AutoUnclearMissing      *bool `json:"auto_unclear_missing"`
	AutoAdjustDates         *bool `json:"auto_adjust_dates"`
}

var (
	errFilePathDisabled     = errors.New("csv_file_path is not enabled on this server, send csv_data instead")
	errOutsideStatementsDir = errors.New("csv_file_path must name a file inside the statements directory")
)

func (a ToolArgs) request(execute bool, statementsDir string) (service.Request, error) {
	if a.BudgetID == "" || a.AccountID == "" {
		return service.Request{}, errors.New("budget_id and account_id are required")
	}
	req := service.Request{
		BudgetID:  a.BudgetID,
		AccountID: a.AccountID,
		Content:   []byte(a.CSVData),
		Filename:  a.Filename,
		Execute:   execute,
	}
	if a.CSVFilePath != "" && len(a.CSVData) == 0 {
		path, err := statementPath(statementsDir, a.CSVFilePath)
		if err != nil {
			return service.Request{}, err
		}
		req.FilePath = path
	}
	if a.StatementBalance != nil {
		m := money.FromDecimal(*a.StatementBalance)
		req.StatementBalance = &m
	}
	if a.StatementDate != "" {
		d, err := time.Parse(models.DateLayout, a.StatementDate)
		if err != nil {
			return service.Request{}, fmt.Errorf("invalid statement_date %q", a.StatementDate)
		}
		req.StatementDate = &d
	}

	opts := executors.DefaultOptions()
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&opts.DryRun, a.DryRun)
	set(&opts.AutoCreateTransactions, a.AutoCreateTransactions)
	set(&opts.AutoUpdateClearedStatus, a.AutoUpdateClearedStatus)
	set(&opts.AutoUnclearMissing, a.AutoUnclearMissing)
	set(&opts.AutoAdjustDates, a.AutoAdjustDates)
	req.Options = opts
	return req, nil
}

// statementPath resolves p against dir and rejects anything that lands
// outside dir, before and after following symlinks.
func statementPath(dir, p string) (string, error) {
	if dir == "" {
		return "", errFilePathDisabled
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", errOutsideStatementsDir
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	if !within(root, p) {
		return "", errOutsideStatementsDir
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", errOutsideStatementsDir
	}
	realPath, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("csv_file_path %q not found in the statements directory", filepath.Base(p))
	}
	if !within(realRoot, realPath) {
		return "", errOutsideStatementsDir
	}
	return realPath, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) writeText(w http.ResponseWriter, resp *service.Response) {
	var buf bytes.Buffer
	render.Analysis(&buf, resp.Analysis, resp.Currency)
	if resp.Execution != nil {
		buf.WriteString("\n")
		render.Execution(&buf, resp.Execution, resp.Currency)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("failed to write text response", "err", err)
	}
}
