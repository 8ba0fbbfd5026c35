package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// ParseOFX reads bank and credit card statements from an OFX/QFX export.
func (p *Parser) ParseOFX(data []byte) (*Result, error) {
	content := strings.TrimLeft(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), " \t\r\n")
	if content == "" {
		return nil, ErrEmptyContent
	}
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = openTagRegex.ReplaceAllString(content, "$1>")

	resp, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ofx: %w", err)
	}

	res := &Result{FileType: OFX}
	row := 0
	add := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, txn := range list.Transactions {
			row++
			bankTxn, err := convertOFX(txn)
			if err != nil {
				res.Skipped = append(res.Skipped, RowError{Row: row, Reason: err.Error(), Err: err})
				continue
			}
			bankTxn.Row = row
			res.Transactions = append(res.Transactions, bankTxn)
		}
	}
	setBalance := func(amount ofxgo.Amount, asOf ofxgo.Date) {
		if asOf.IsZero() {
			return
		}
		balance := money.FromDecimal(ratDecimal(amount))
		date := civil(asOf.Time)
		res.StatementBalance = &balance
		res.StatementDate = &date
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankTranList)
			setBalance(stmt.BalAmt, stmt.DtAsOf)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.BankTranList)
			setBalance(stmt.BalAmt, stmt.DtAsOf)
		}
	}

	assignIDs(res.Transactions)
	p.logger.Debug("ofx parsed", "transactions", len(res.Transactions), "skipped", len(res.Skipped))
	return res, nil
}

func convertOFX(txn ofxgo.Transaction) (models.BankTransaction, error) {
	if txn.DtPosted.IsZero() {
		return models.BankTransaction{}, fmt.Errorf("%w: date", ErrMissingField)
	}
	amount := money.FromDecimal(ratDecimal(txn.TrnAmt))

	payee := strings.TrimSpace(string(txn.Name))
	if txn.Payee != nil && txn.Payee.Name != "" {
		payee = strings.TrimSpace(string(txn.Payee.Name))
	}

	return models.BankTransaction{
		Date:   civil(txn.DtPosted.Time.In(time.UTC)),
		Amount: amount,
		Payee:  payee,
		Memo:   strings.TrimSpace(string(txn.Memo)),
	}, nil
}

func ratDecimal(a ofxgo.Amount) decimal.Decimal {
	d, err := decimal.NewFromString(a.FloatString(4))
	if err != nil {
		return decimal.Zero
	}
	return d
}
