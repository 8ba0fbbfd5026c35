package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

// Header is the column layout YNAB's file import expects.
var Header = []string{"Date", "Payee", "Memo", "Amount"}

type Record interface {
	CSVRecord() []string
}

type FilterFunc[T Record] func(T) bool

// Create renders records as a YNAB import file, keeping those filter accepts.
func Create[T Record](records []T, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range records {
		if filter == nil || filter(r) {
			if err := w.Write(r.CSVRecord()); err != nil {
				return nil, fmt.Errorf("failed to write record: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filter narrows bank transactions for export. Zero fields are ignored.
type Filter struct {
	Start     time.Time
	End       time.Time
	MinAmount money.Milliunits
	MaxAmount money.Milliunits
	Payee     string
}

func (f Filter) Func() FilterFunc[models.BankTransaction] {
	payee := strings.ToLower(f.Payee)
	return func(t models.BankTransaction) bool {
		if !f.Start.IsZero() && t.Date.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && t.Date.After(f.End) {
			return false
		}
		if f.MinAmount != 0 && t.Amount < f.MinAmount {
			return false
		}
		if f.MaxAmount != 0 && t.Amount > f.MaxAmount {
			return false
		}
		if payee != "" && !strings.Contains(strings.ToLower(t.Payee), payee) {
			return false
		}
		return true
	}
}
