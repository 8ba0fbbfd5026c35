package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyContent is returned for statements with no data at all.
	ErrEmptyContent = errors.New("statement content is empty")
	// ErrEmptyHeader is returned when the first line of a statement is blank.
	ErrEmptyHeader = errors.New("statement first line is empty")
)

const sampleLines = 3

var delimiterCandidates = []rune{',', ';', '\t', '|'}

var (
	dateSynonyms        = []string{"date", "transaction date", "trans date", "post date", "posted date", "posting date", "booking date", "value date"}
	amountSynonyms      = []string{"amount", "dollar amount", "amt", "transaction amount", "value"}
	descriptionSynonyms = []string{"description", "payee", "merchant", "desc", "name", "details", "transaction description", "memo"}
	memoSynonyms        = []string{"memo", "notes", "note", "reference"}
	debitSynonyms       = []string{"debit", "withdrawal", "withdrawals", "debit amount", "money out"}
	creditSynonyms      = []string{"credit", "deposit", "deposits", "credit amount", "money in"}
)

// ColumnRef addresses a column either by header name or by position.
type ColumnRef struct {
	name   string
	index  int
	byName bool
}

// ByName refers to the column whose header equals name (case-insensitive).
func ByName(name string) ColumnRef {
	return ColumnRef{name: name, byName: true}
}

// ByIndex refers to the zero-based column i.
func ByIndex(i int) ColumnRef {
	return ColumnRef{index: i}
}

// Resolve returns the zero-based index the reference points at.
func (c ColumnRef) Resolve(header []string) (int, bool) {
	if !c.byName {
		return c.index, c.index >= 0
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(c.name)) {
			return i, true
		}
	}
	return -1, false
}

func (c ColumnRef) String() string {
	if c.byName {
		return fmt.Sprintf("%q", c.name)
	}
	return fmt.Sprintf("#%d", c.index)
}

// Format describes how to read a statement.
type Format struct {
	Delimiter         rune
	HasHeader         bool
	DateColumn        ColumnRef
	AmountColumn      *ColumnRef
	DebitColumn       *ColumnRef
	CreditColumn      *ColumnRef
	DescriptionColumn *ColumnRef
	MemoColumn        *ColumnRef
	DateFormat        DateFormat
}

// SplitAmount reports whether amounts come from separate debit and credit columns.
func (f Format) SplitAmount() bool {
	return f.AmountColumn == nil && f.DebitColumn != nil && f.CreditColumn != nil
}

// HasAmount reports whether the format names any usable amount column.
func (f Format) HasAmount() bool {
	return f.AmountColumn != nil || f.SplitAmount()
}

// DetectFormat inspects the first lines of a CSV statement.
func DetectFormat(content string) (Format, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	if strings.TrimSpace(content) == "" {
		return Format{}, ErrEmptyContent
	}

	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) == "" {
		return Format{}, ErrEmptyHeader
	}

	delimiter, rows := detectDelimiter(content)
	f := detectColumns(rows)
	f.Delimiter = delimiter
	return f, nil
}

// detectColumns infers header presence, column roles and date format from
// the first rows of a statement.
func detectColumns(rows [][]string) Format {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Format{DateColumn: ByIndex(0), AmountColumn: ref(ByIndex(1)), DescriptionColumn: ref(ByIndex(2)), DateFormat: DateMDYSlash}
	}

	first := rows[0]
	if looksLikeDate(first[0]) {
		return Format{
			DateColumn:        ByIndex(0),
			AmountColumn:      ref(ByIndex(1)),
			DescriptionColumn: ref(ByIndex(2)),
			DateFormat:        detectDateFormat(first[0]),
		}
	}

	f := Format{HasHeader: true, DateFormat: DateMDYSlash}

	if col, ok := findHeader(first, dateSynonyms); ok {
		f.DateColumn = ByName(col)
	} else {
		f.DateColumn = ByName(first[0])
	}

	debit, hasDebit := findHeader(first, debitSynonyms)
	credit, hasCredit := findHeader(first, creditSynonyms)
	if hasDebit && hasCredit {
		f.DebitColumn = ref(ByName(debit))
		f.CreditColumn = ref(ByName(credit))
	} else if col, ok := findHeader(first, amountSynonyms); ok {
		f.AmountColumn = ref(ByName(col))
	} else if len(first) > 1 {
		f.AmountColumn = ref(ByName(first[1]))
	}

	desc, hasDesc := findHeader(first, descriptionSynonyms)
	if hasDesc {
		f.DescriptionColumn = ref(ByName(desc))
	} else if len(first) > 2 {
		f.DescriptionColumn = ref(ByName(first[2]))
	}
	if memo, ok := findHeader(first, memoSynonyms); ok && !strings.EqualFold(memo, desc) {
		f.MemoColumn = ref(ByName(memo))
	}

	if len(rows) > 1 {
		if i, ok := f.DateColumn.Resolve(first); ok && i < len(rows[1]) {
			f.DateFormat = detectDateFormat(rows[1][i])
		}
	}
	return f
}

// findHeader returns the first header matching a synonym, in synonym order.
func findHeader(header []string, synonyms []string) (string, bool) {
	for _, syn := range synonyms {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), syn) {
				return strings.TrimSpace(h), true
			}
		}
	}
	return "", false
}

// detectDelimiter picks the candidate delimiter that splits the sample rows
// into the most columns, preferring one that gives every row the same count.
func detectDelimiter(content string) (rune, [][]string) {
	best := ','
	var bestRows [][]string
	bestCols, bestConsistent := 0, false
	for _, d := range delimiterCandidates {
		rows := sampleRows(content, d)
		cols, consistent := columnCounts(rows)
		if cols < 2 {
			continue
		}
		if (consistent && !bestConsistent) || (consistent == bestConsistent && cols > bestCols) {
			best, bestRows, bestCols, bestConsistent = d, rows, cols, consistent
		}
	}
	if bestRows == nil {
		bestRows = sampleRows(content, best)
	}
	return best, bestRows
}

// sampleRows reads the first non-blank records the way the parser will, so
// quoted fields may hold delimiters and line breaks.
func sampleRows(content string, d rune) [][]string {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = d
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = d != '\t'

	rows := make([][]string, 0, sampleLines)
	for len(rows) < sampleLines {
		fields, err := r.Read()
		if err != nil {
			break
		}
		blank := true
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
			if fields[i] != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, fields)
		}
	}
	return rows
}

func columnCounts(rows [][]string) (int, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	first := len(rows[0])
	consistent := true
	for _, row := range rows[1:] {
		if len(row) != first {
			consistent = false
		}
	}
	return first, consistent
}

func ref(c ColumnRef) *ColumnRef {
	return &c
}
