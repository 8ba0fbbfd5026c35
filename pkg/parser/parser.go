package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/money"
)

// ErrUnsupportedFormat is returned for statement files no reader understands.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

type FileType string

const (
	CSV FileType = "csv"
	XLS FileType = "xls"
	OFX FileType = "ofx"
)

// RowError records a statement row that was skipped.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of reading one statement. Only rows that parsed
// completely appear in Transactions; everything else is listed in Skipped.
type Result struct {
	FileType     FileType                 `json:"file_type"`
	Format       *Format                  `json:"-"`
	Transactions []models.BankTransaction `json:"transactions"`
	Skipped      []RowError               `json:"skipped,omitempty"`

	// Set when the statement itself carries a closing balance (OFX LEDGERBAL).
	StatementBalance *money.Milliunits `json:"statement_balance,omitempty"`
	StatementDate    *time.Time        `json:"statement_date,omitempty"`
}

type Parser struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Parser {
	return &Parser{
		logger: logger,
	}
}

// ProcessFile reads a statement from disk.
func (p *Parser) ProcessFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement file %s: %w", path, err)
	}
	res, err := p.ProcessBytes(data, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to process statement file %s: %w", path, err)
	}
	return res, nil
}

// ProcessBytes parses a statement, choosing the reader from the file name.
func (p *Parser) ProcessBytes(data []byte, filename string) (*Result, error) {
	fileType := detectType(filename)
	p.logger.Debug("detected file type", "type", fileType, "filename", filename)

	switch fileType {
	case XLS:
		return p.ParseXLS(data)
	case OFX:
		return p.ParseOFX(data)
	case CSV:
		return p.ParseAuto(string(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func detectType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return XLS
	case ".ofx", ".qfx":
		return OFX
	case ".xlsx", ".pdf":
		return ""
	default:
		return CSV
	}
}
