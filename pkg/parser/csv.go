package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

// ErrMissingField is wrapped by row errors for rows lacking a required value.
var ErrMissingField = errors.New("missing required field")

type record struct {
	fields []string
	line   int
}

type columns struct {
	date, amount, debit, credit, description, memo int
}

// ParseAuto detects the statement layout and parses it.
func (p *Parser) ParseAuto(content string) (*Result, error) {
	f, err := DetectFormat(content)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("detected csv format", "delimiter", string(f.Delimiter), "header", f.HasHeader, "date_format", f.DateFormat, "split_amount", f.SplitAmount())
	return p.ParseCSV(content, f)
}

// ParseCSV parses content using the given format.
func (p *Parser) ParseCSV(content string, f Format) (*Result, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	r := csv.NewReader(strings.NewReader(content))
	if f.Delimiter != 0 {
		r.Comma = f.Delimiter
	}
	r.FieldsPerRecord = -1 // rows are validated one by one
	r.LazyQuotes = true
	r.TrimLeadingSpace = r.Comma != '\t'

	var (
		records []record
		broken  []RowError
	)
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				broken = append(broken, RowError{Row: parseErr.StartLine, Reason: "malformed row", Err: err})
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{fields: fields, line: line})
	}

	res := p.parseRecords(records, f)
	res.FileType = CSV
	if len(broken) > 0 {
		res.Skipped = append(res.Skipped, broken...)
		sort.SliceStable(res.Skipped, func(i, j int) bool { return res.Skipped[i].Row < res.Skipped[j].Row })
	}
	return res, nil
}

// parseRecords turns rows into bank transactions, skipping rows that fail.
func (p *Parser) parseRecords(records []record, f Format) *Result {
	res := &Result{Format: &f}
	if len(records) == 0 {
		return res
	}

	var header []string
	data := records
	if f.HasHeader {
		header = records[0].fields
		data = records[1:]
	}

	if !f.HasAmount() {
		p.logger.Warn("statement format has no amount column, nothing to parse")
		return res
	}
	cols := resolveColumns(f, header)
	if cols.amount < 0 && (cols.debit < 0 || cols.credit < 0) {
		p.logger.Warn("amount column not found in statement header", "header", header)
		return res
	}

	for _, rec := range data {
		txn, err := cols.parse(rec.fields, f.DateFormat)
		if err != nil {
			p.logger.Debug("skipping statement row", "row", rec.line, "err", err)
			res.Skipped = append(res.Skipped, RowError{Row: rec.line, Reason: err.Error(), Err: err})
			continue
		}
		txn.Row = rec.line
		res.Transactions = append(res.Transactions, txn)
	}

	assignIDs(res.Transactions)
	p.logger.Debug("statement parsed", "transactions", len(res.Transactions), "skipped", len(res.Skipped))
	return res
}

func resolveColumns(f Format, header []string) columns {
	return columns{
		date:        resolve(&f.DateColumn, header),
		amount:      resolve(f.AmountColumn, header),
		debit:       resolve(f.DebitColumn, header),
		credit:      resolve(f.CreditColumn, header),
		description: resolve(f.DescriptionColumn, header),
		memo:        resolve(f.MemoColumn, header),
	}
}

func resolve(c *ColumnRef, header []string) int {
	if c == nil {
		return -1
	}
	i, ok := c.Resolve(header)
	if !ok {
		return -1
	}
	return i
}

func (c columns) parse(fields []string, df DateFormat) (models.BankTransaction, error) {
	rawDate := field(fields, c.date)
	if rawDate == "" {
		return models.BankTransaction{}, fmt.Errorf("%w: date", ErrMissingField)
	}
	date, err := parseDate(rawDate, df)
	if err != nil {
		return models.BankTransaction{}, err
	}

	amount, err := c.amountOf(fields)
	if err != nil {
		return models.BankTransaction{}, err
	}

	return models.BankTransaction{
		Date:   date,
		Amount: amount,
		Payee:  field(fields, c.description),
		Memo:   field(fields, c.memo),
	}, nil
}

// amountOf reads the single amount column, or the debit/credit pair where a
// non-zero debit is an outflow and a non-zero credit an inflow.
func (c columns) amountOf(fields []string) (money.Milliunits, error) {
	if c.amount >= 0 {
		raw := field(fields, c.amount)
		if raw == "" {
			return 0, fmt.Errorf("%w: amount", ErrMissingField)
		}
		return money.Parse(raw)
	}

	rawDebit, rawCredit := field(fields, c.debit), field(fields, c.credit)
	if rawDebit == "" && rawCredit == "" {
		return 0, fmt.Errorf("%w: debit/credit", ErrMissingField)
	}
	if rawDebit != "" {
		debit, err := money.Parse(rawDebit)
		if err != nil {
			return 0, err
		}
		if debit != 0 {
			return -debit.Abs(), nil
		}
	}
	if rawCredit != "" {
		credit, err := money.Parse(rawCredit)
		if err != nil {
			return 0, err
		}
		if credit != 0 {
			return credit.Abs(), nil
		}
	}
	return 0, nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
