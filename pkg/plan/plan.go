package plan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yurifrl/ynab-reconciler/pkg/executors"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

var ErrNoStatements = errors.New("plan has no statements")

type YNABConfig struct {
	BudgetID string `yaml:"budget_id"`
	TokenEnv string `yaml:"token_env"`
	// Accounts maps short names used by statements to account ids.
	Accounts map[string]string `yaml:"accounts"`
}

type Plan struct {
	YNAB       YNABConfig  `yaml:"ynab"`
	Statements []Statement `yaml:"statements"`

	dir string
}

// Flags override executors.DefaultOptions for one statement. Unset flags keep
// the default.
type Flags struct {
	CreateTransactions  *bool `yaml:"auto_create_transactions"`
	UpdateClearedStatus *bool `yaml:"auto_update_cleared_status"`
	UnclearMissing      *bool `yaml:"auto_unclear_missing"`
	AdjustDates         *bool `yaml:"auto_adjust_dates"`
}

type Statement struct {
	Name             string `yaml:"name"`
	File             string `yaml:"file"`
	Account          string `yaml:"account"`
	StatementBalance string `yaml:"statement_balance"`
	StatementDate    string `yaml:"statement_date"`
	Flags            Flags  `yaml:"flags"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// Parse decodes and validates a plan. Relative statement paths resolve
// against the working directory.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if len(p.Statements) == 0 {
		return nil, ErrNoStatements
	}
	if p.YNAB.BudgetID == "" {
		return nil, fmt.Errorf("plan has no ynab.budget_id")
	}

	for i, st := range p.Statements {
		if st.File == "" {
			return nil, fmt.Errorf("statement %d: file is required", i+1)
		}
		if st.Account == "" {
			return nil, fmt.Errorf("statement %d: account is required", i+1)
		}
		if _, err := st.Balance(); err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		if _, err := st.Date(); err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return &p, nil
}

// AccountID resolves a statement's account through the alias table. Values
// that are not aliases are taken as account ids.
func (p *Plan) AccountID(st Statement) string {
	if id, ok := p.YNAB.Accounts[st.Account]; ok {
		return id
	}
	return st.Account
}

// Path returns the statement file path, expanding ~ and resolving relative
// paths against the plan file's directory.
func (p *Plan) Path(st Statement) (string, error) {
	path := st.File
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if !filepath.IsAbs(path) && p.dir != "" {
		return filepath.Join(p.dir, path), nil
	}
	return path, nil
}

// Options builds executor options for st on top of base.
func (p *Plan) Options(st Statement, base executors.Options) executors.Options {
	opts := base
	opts.BudgetID = p.YNAB.BudgetID
	opts.AccountID = p.AccountID(st)

	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&opts.AutoCreateTransactions, st.Flags.CreateTransactions)
	set(&opts.AutoUpdateClearedStatus, st.Flags.UpdateClearedStatus)
	set(&opts.AutoUnclearMissing, st.Flags.UnclearMissing)
	set(&opts.AutoAdjustDates, st.Flags.AdjustDates)

	if b, _ := st.Balance(); b != nil {
		opts.StatementBalance = b
	}
	if d, _ := st.Date(); d != nil {
		opts.StatementDate = d
	}
	return opts
}

// Label names the statement in output.
func (st Statement) Label() string {
	if st.Name != "" {
		return st.Name
	}
	return filepath.Base(st.File)
}

// Balance returns the statement balance, or nil when the plan leaves it to
// the statement file.
func (st Statement) Balance() (*money.Milliunits, error) {
	if st.StatementBalance == "" {
		return nil, nil
	}
	m, err := money.Parse(st.StatementBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid statement_balance: %w", err)
	}
	return &m, nil
}

func (st Statement) Date() (*time.Time, error) {
	if st.StatementDate == "" {
		return nil, nil
	}
	d, err := time.Parse(models.DateLayout, st.StatementDate)
	if err != nil {
		return nil, fmt.Errorf("invalid statement_date %q: %w", st.StatementDate, err)
	}
	return &d, nil
}

func (p *Plan) Print(w io.Writer) {
	fmt.Fprintf(w, "YNAB budget: %s\n", p.YNAB.BudgetID)
	for i, st := range p.Statements {
		fmt.Fprintf(w, "[%d] %s file=%s account=%s\n", i+1, st.Label(), st.File, p.AccountID(st))
	}
}
