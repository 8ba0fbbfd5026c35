package main

import (
	"fmt"
	"time"

	"github.com/yurifrl/ynab-reconciler/pkg/csv"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

type filters struct {
	startDate string
	endDate   string
	minAmount string
	maxAmount string
	payee     string
}

func (f *filters) toFilter() (csv.Filter, error) {
	var out csv.Filter
	var err error

	if f.startDate != "" {
		if out.Start, err = time.Parse(models.DateLayout, f.startDate); err != nil {
			return out, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if f.endDate != "" {
		if out.End, err = time.Parse(models.DateLayout, f.endDate); err != nil {
			return out, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if f.minAmount != "" {
		if out.MinAmount, err = money.Parse(f.minAmount); err != nil {
			return out, fmt.Errorf("invalid --min: %w", err)
		}
	}
	if f.maxAmount != "" {
		if out.MaxAmount, err = money.Parse(f.maxAmount); err != nil {
			return out, fmt.Errorf("invalid --max: %w", err)
		}
	}
	out.Payee = f.payee
	return out, nil
}

// statementFlags are shared by the single-statement commands.
type statementFlags struct {
	budgetID  string
	accountID string
	balance   string
	date      string
}

func (s *statementFlags) balanceValue() (*money.Milliunits, error) {
	if s.balance == "" {
		return nil, nil
	}
	m, err := money.Parse(s.balance)
	if err != nil {
		return nil, fmt.Errorf("invalid --balance: %w", err)
	}
	return &m, nil
}

func (s *statementFlags) dateValue() (*time.Time, error) {
	if s.date == "" {
		return nil, nil
	}
	d, err := time.Parse(models.DateLayout, s.date)
	if err != nil {
		return nil, fmt.Errorf("invalid --date: %w", err)
	}
	return &d, nil
}
