package parser

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

func newTestParser() *Parser {
	return New(log.New(io.Discard))
}

func TestParseDebitCredit(t *testing.T) {
	content := "Date,Description,Debit,Credit\n09/15/2023,Test,123.45,\n09/16/2023,Test2,,67.89\n"

	res, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, money.Milliunits(-123450), res.Transactions[0].Amount)
	assert.Equal(t, "Test", res.Transactions[0].Payee)
	assert.Equal(t, "2023-09-15", res.Transactions[0].DateString())
	assert.Equal(t, 2, res.Transactions[0].Row)

	assert.Equal(t, money.Milliunits(67890), res.Transactions[1].Amount)
	assert.Equal(t, "2023-09-16", res.Transactions[1].DateString())
	assert.Equal(t, 3, res.Transactions[1].Row)
}

func TestParseSkipsBadRows(t *testing.T) {
	content := "Date,Amount,Description\n" +
		"09/15/2023,-45.23,AMAZON.COM\n" +
		"bad,1.00,B\n" +
		"09/17/2023,,C\n" +
		"09/18/2023,abc,D\n" +
		"09/19/2023,2.00,E\n"

	res, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, money.Milliunits(-45230), res.Transactions[0].Amount)
	assert.Equal(t, money.Milliunits(2000), res.Transactions[1].Amount)

	require.Len(t, res.Skipped, 3)
	assert.Equal(t, 3, res.Skipped[0].Row)
	assert.ErrorIs(t, res.Skipped[0], ErrInvalidDate)
	assert.Equal(t, 4, res.Skipped[1].Row)
	assert.ErrorIs(t, res.Skipped[1], ErrMissingField)
	assert.Equal(t, 5, res.Skipped[2].Row)
	assert.ErrorIs(t, res.Skipped[2], money.ErrInvalidAmount)
}

func TestParseQuotedFields(t *testing.T) {
	content := "Date,Amount,Description\n01/02/2024,\"-1,234.50\",\"Coffee, Large\"\n"

	res, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, money.Milliunits(-1234500), res.Transactions[0].Amount)
	assert.Equal(t, "Coffee, Large", res.Transactions[0].Payee)
}

func TestParseSemicolonDecimalComma(t *testing.T) {
	content := "Date;Amount;Payee\n2025-03-17;-2327,00;PIX TRANSF\n2025-03-19;42000,00;SALARY\n"

	res, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, money.Milliunits(-2327000), res.Transactions[0].Amount)
	assert.Equal(t, money.Milliunits(42000000), res.Transactions[1].Amount)
}

func TestParseWithoutAmountColumn(t *testing.T) {
	f := Format{
		Delimiter:  ',',
		HasHeader:  true,
		DateColumn: ByName("Date"),
		DateFormat: DateMDYSlash,
	}

	res, err := newTestParser().ParseCSV("Date,Description\n01/02/2024,Cafe\n", f)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
}

func TestParseEmpty(t *testing.T) {
	_, err := newTestParser().ParseAuto("")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = newTestParser().ParseCSV("", Format{})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestTransactionIDsAreStable(t *testing.T) {
	content := "Date,Amount,Description\n01/02/2024,-5.00,Cafe\n01/02/2024,-5.00,Cafe\n"

	first, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	second, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)

	require.Len(t, first.Transactions, 2)
	assert.NotEmpty(t, first.Transactions[0].ID)
	assert.NotEqual(t, first.Transactions[0].ID, first.Transactions[1].ID)
	assert.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
	assert.Equal(t, first.Transactions[1].ID, second.Transactions[1].ID)
}

func TestProcessBytes(t *testing.T) {
	p := newTestParser()

	res, err := p.ProcessBytes([]byte("Date,Amount,Description\n01/02/2024,-5.00,Cafe\n"), "statement.csv")
	require.NoError(t, err)
	assert.Equal(t, CSV, res.FileType)
	assert.Len(t, res.Transactions, 1)

	_, err = p.ProcessBytes([]byte("%PDF-1.4"), "statement.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012001
<NAME>PAYROLL
<MEMO>January
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseOFX(t *testing.T) {
	res, err := newTestParser().ProcessBytes([]byte(sampleOFX), "export.qfx")
	require.NoError(t, err)
	assert.Equal(t, OFX, res.FileType)
	require.Len(t, res.Transactions, 2)

	assert.Equal(t, money.Milliunits(-25500), res.Transactions[0].Amount)
	assert.Equal(t, "STARBUCKS STORE #1234", res.Transactions[0].Payee)
	assert.Equal(t, "2024-01-15", res.Transactions[0].DateString())

	assert.Equal(t, money.Milliunits(1500000), res.Transactions[1].Amount)
	assert.Equal(t, "January", res.Transactions[1].Memo)

	require.NotNil(t, res.StatementBalance)
	assert.Equal(t, money.Milliunits(1000000), *res.StatementBalance)
	require.NotNil(t, res.StatementDate)
	assert.Equal(t, "2024-01-31", res.StatementDate.Format("2006-01-02"))
}

func TestParseOFXInvalid(t *testing.T) {
	_, err := newTestParser().ParseOFX([]byte("not valid OFX"))
	assert.Error(t, err)

	_, err = newTestParser().ParseOFX(nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestParseQuotedLineBreak(t *testing.T) {
	content := "Date,Amount,Description\n" +
		"01/02/2024,-5.00,\"Coffee\nLarge\"\n" +
		"01/03/2024,-2.00,Bus\n"

	res, err := newTestParser().ParseAuto(content)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, money.Milliunits(-5000), res.Transactions[0].Amount)
	assert.Equal(t, money.Milliunits(-2000), res.Transactions[1].Amount)
}
