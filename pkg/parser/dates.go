package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date field matches no supported layout.
var ErrInvalidDate = errors.New("invalid date")

// DateFormat names one of the statement date layouts the detector recognises.
type DateFormat string

const (
	DateMDYSlash DateFormat = "MM/DD/YYYY"
	DateISO      DateFormat = "YYYY-MM-DD"
	DateMDYDash  DateFormat = "MM-DD-YYYY"
	DateMonthDY  DateFormat = "MMM dd, yyyy"
)

type datePattern struct {
	format DateFormat
	regex  *regexp.Regexp
	layout string
}

// detection order matters: the first pattern that matches wins
var datePatterns = []datePattern{
	{DateMDYSlash, regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "1/2/2006"},
	{DateISO, regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), "2006-1-2"},
	{DateMDYDash, regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "1-2-2006"},
	{DateMonthDY, regexp.MustCompile(`^[A-Za-z]{3} \d{1,2}, \d{4}$`), "Jan 2, 2006"},
}

// looser shapes that still mark a field as a date for header detection
var dateLikeRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`),
	regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`),
	regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2},? \d{4}$`),
	regexp.MustCompile(`^\d{1,2}[ -][A-Za-z]{3}[ -]\d{2,4}$`),
}

var fallbackLayouts = []string{
	"01/02/2006",
	"1/2/06",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006 15:04:05",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"20060102",
}

// layout returns the Go time layout for the format.
func (f DateFormat) layout() string {
	for _, p := range datePatterns {
		if p.format == f {
			return p.layout
		}
	}
	return datePatterns[0].layout
}

// looksLikeDate reports whether s has the shape of a supported date.
func looksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range datePatterns {
		if p.regex.MatchString(s) {
			return true
		}
	}
	for _, re := range dateLikeRegexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// detectDateFormat returns the first pattern matching sample, or MM/DD/YYYY.
func detectDateFormat(sample string) DateFormat {
	sample = strings.TrimSpace(sample)
	for _, p := range datePatterns {
		if p.regex.MatchString(sample) {
			return p.format
		}
	}
	return DateMDYSlash
}

// parseDate reads s with the descriptor's format and falls back to the
// generic layouts. The result is a calendar date at UTC midnight.
func parseDate(s string, format DateFormat) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if t, err := time.Parse(format.layout(), s); err == nil {
		return civil(t), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
