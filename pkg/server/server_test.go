package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
	"github.com/yurifrl/ynab-reconciler/pkg/reconcile"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
)

type fakeReconciler struct {
	got      service.Request
	budgetID string
	err      error
	panic    bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, req service.Request) (*service.Response, error) {
	if f.panic {
		panic("boom")
	}
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	a := reconcile.Analyze(nil, nil, reconcile.Request{Config: matcher.DefaultConfig()})
	return &service.Response{Currency: "USD", Analysis: a}, nil
}

func (f *fakeReconciler) Budgets(context.Context) ([]models.Budget, error) {
	return []models.Budget{{ID: "b1", Name: "Home"}}, f.err
}

func (f *fakeReconciler) Accounts(_ context.Context, budgetID string) ([]models.Account, error) {
	f.budgetID = budgetID
	return []models.Account{{ID: "a1", Name: "Checking"}}, f.err
}

func do(t *testing.T, f *fakeReconciler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doWith(t, f, Options{}, method, path, body)
}

func doWith(t *testing.T, f *fakeReconciler, opts Options, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(log.New(io.Discard), f, opts)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyzeStatementTool(t *testing.T) {
	f := &fakeReconciler{}
	rec := do(t, f, http.MethodPost, "/api/tools/analyze_statement", `{
		"budget_id": "b1",
		"account_id": "a1",
		"csv_data": "Date,Description,Amount\n10/01/2025,Shell,-45.23\n",
		"statement_balance": -1234.56,
		"statement_date": "2025-10-31"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "analyze_statement", body["tool"])

	assert.False(t, f.got.Execute)
	assert.Equal(t, "b1", f.got.BudgetID)
	assert.Contains(t, string(f.got.Content), "Shell")
	require.NotNil(t, f.got.StatementBalance)
	assert.Equal(t, money.Milliunits(-1234560), *f.got.StatementBalance)
	require.NotNil(t, f.got.StatementDate)
	assert.Equal(t, "2025-10-31", f.got.StatementDate.Format(models.DateLayout))
}

func TestReconcileAccountTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oct.csv"), []byte("Date,Amount\n"), 0o600))
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "oct.csv"))
	require.NoError(t, err)

	f := &fakeReconciler{}
	rec := doWith(t, f, Options{StatementsDir: dir}, http.MethodPost, "/api/tools/reconcile_account", `{
		"budget_id": "b1",
		"account_id": "a1",
		"csv_file_path": "oct.csv",
		"statement_balance": "100.00",
		"dry_run": false,
		"auto_adjust_dates": true,
		"auto_unclear_missing": false
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.got.Execute)
	assert.Equal(t, want, f.got.FilePath)
	assert.Equal(t, money.Milliunits(100000), *f.got.StatementBalance)
	assert.False(t, f.got.Options.DryRun)
	assert.True(t, f.got.Options.AutoAdjustDates)
	assert.False(t, f.got.Options.AutoUnclearMissing)
	assert.True(t, f.got.Options.AutoCreateTransactions)
}

func TestToolFilePathConfinedToStatementsDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "statements")
	require.NoError(t, os.Mkdir(dir, 0o700))
	secret := filepath.Join(root, "secret.env")
	require.NoError(t, os.WriteFile(secret, []byte("user,password,host\nadmin,hunter2,db.internal\n"), 0o600))

	link := filepath.Join(dir, "link.csv")
	linked := os.Symlink(secret, link) == nil

	tests := []struct {
		name string
		opts Options
		path string
		want string
	}{
		{"disabled without a directory", Options{}, secret, "not enabled"},
		{"absolute path outside", Options{StatementsDir: dir}, secret, "inside the statements directory"},
		{"relative escape", Options{StatementsDir: dir}, "../secret.env", "inside the statements directory"},
		{"missing file", Options{StatementsDir: dir}, "nope.csv", "not found"},
	}
	if linked {
		tests = append(tests, struct {
			name string
			opts Options
			path string
			want string
		}{"symlink escape", Options{StatementsDir: dir}, "link.csv", "inside the statements directory"})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeReconciler{}
			body, err := json.Marshal(map[string]any{
				"budget_id":         "b1",
				"account_id":        "a1",
				"csv_file_path":     tt.path,
				"statement_balance": 1,
			})
			require.NoError(t, err)

			rec := doWith(t, f, tt.opts, http.MethodPost, "/api/tools/analyze_statement", string(body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], tt.want)
			assert.NotContains(t, rec.Body.String(), "hunter2")
			assert.Empty(t, f.got.BudgetID, "service is not called")
		})
	}
}

func TestToolTextFormat(t *testing.T) {
	rec := do(t, &fakeReconciler{}, http.MethodPost, "/api/tools/analyze_statement",
		`{"budget_id":"b1","account_id":"a1","csv_data":"x","format":"text"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Reconciliation analysis")
}

func TestToolErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"unknown tool", "/api/tools/delete_budget", `{}`, nil, http.StatusNotFound, `unknown tool "delete_budget"`},
		{"bad json", "/api/tools/analyze_statement", `{`, nil, http.StatusBadRequest, "invalid arguments"},
		{"missing ids", "/api/tools/analyze_statement", `{"csv_data":"x"}`, nil, http.StatusBadRequest, "budget_id and account_id are required"},
		{"bad date", "/api/tools/analyze_statement", `{"budget_id":"b","account_id":"a","statement_date":"31/10/2025"}`, nil, http.StatusBadRequest, "invalid statement_date"},
		{"locked", "/api/tools/reconcile_account", `{"budget_id":"b","account_id":"a"}`, service.ErrReconciliationInProgress, http.StatusConflict, "already in progress"},
		{"no balance", "/api/tools/analyze_statement", `{"budget_id":"b","account_id":"a"}`, service.ErrMissingStatementBalance, http.StatusBadRequest, "statement balance is required"},
		{"ledger down", "/api/tools/analyze_statement", `{"budget_id":"b","account_id":"a"}`, errors.New("503 from ynab"), http.StatusBadGateway, "503 from ynab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, &fakeReconciler{err: tt.err}, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestToolMethodNotAllowed(t *testing.T) {
	rec := do(t, &fakeReconciler{}, http.MethodGet, "/api/tools/analyze_statement", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPanicRecovered(t *testing.T) {
	rec := do(t, &fakeReconciler{panic: true}, http.MethodPost, "/api/tools/analyze_statement", `{"budget_id":"b","account_id":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
}

func TestBudgets(t *testing.T) {
	rec := do(t, &fakeReconciler{}, http.MethodGet, "/api/budgets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	budgets := decode(t, rec)["budgets"].([]any)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Home", budgets[0].(map[string]any)["name"])
}

func TestBudgetAccounts(t *testing.T) {
	f := &fakeReconciler{}
	rec := do(t, f, http.MethodGet, "/api/budgets/b1/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", f.budgetID)

	accounts := decode(t, rec)["accounts"].([]any)
	assert.Equal(t, "Checking", accounts[0].(map[string]any)["name"])

	rec = do(t, &fakeReconciler{err: errors.New("down")}, http.MethodGet, "/api/budgets/b1/accounts", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
