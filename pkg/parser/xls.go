package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

const maxXLSRows = 10000

// ParseXLS reads the first sheet of a legacy Excel export. The column layout
// is detected the same way as for delimited text.
func (p *Parser) ParseXLS(data []byte) (*Result, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}

	var records []record
	for i, row := range workbook.ReadAllCells(maxXLSRows) {
		fields := make([]string, len(row))
		blank := true
		for j, cell := range row {
			fields[j] = strings.TrimSpace(cell)
			if fields[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		records = append(records, record{fields: fields, line: i + 1})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no data found in sheet: %w", ErrEmptyContent)
	}

	sample := make([][]string, 0, 3)
	for _, rec := range records {
		if len(sample) == cap(sample) {
			break
		}
		sample = append(sample, rec.fields)
	}
	f := detectColumns(sample)

	res := p.parseRecords(records, f)
	res.FileType = XLS
	return res, nil
}
