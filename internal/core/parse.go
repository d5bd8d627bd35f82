package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseResult holds the records parsed from decoded text.
type ParseResult struct {
	Header      []string
	Rows        []RawRecord
	ParseErrors []string
}

// Failed reports whether the text could not be parsed at all.
func (p ParseResult) Failed() bool {
	return len(p.ParseErrors) > 0
}

// ParseRows parses text as comma-separated data. The first non-empty line is
// the header; column names are kept verbatim. Empty lines are skipped.
//
// A structural problem (bad quoting, a record whose field count differs from
// the header) is reported as a single parse error and no rows are returned.
func ParseRows(text string) ParseResult {
	r := csv.NewReader(strings.NewReader(text))
	// Field count is fixed by the header row.
	r.FieldsPerRecord = 0

	records, err := r.ReadAll()
	if err != nil {
		return ParseResult{ParseErrors: []string{describeParseError(err)}}
	}
	if len(records) == 0 {
		return ParseResult{}
	}

	header := records[0]
	rows := make([]RawRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(RawRecord, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}

	return ParseResult{Header: header, Rows: rows}
}

// describeParseError turns an encoding/csv error into a message that names
// the offending line.
func describeParseError(err error) string {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(pe.Err, csv.ErrFieldCount):
			return fmt.Sprintf("invalid csv: line %d has a different number of columns than the header", pe.Line)
		case errors.Is(pe.Err, csv.ErrQuote), errors.Is(pe.Err, csv.ErrBareQuote):
			return fmt.Sprintf("invalid csv: malformed quoting on line %d, column %d", pe.Line, pe.Column)
		}
		return fmt.Sprintf("invalid csv: line %d: %v", pe.Line, pe.Err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return "invalid csv: unexpected end of file"
	}
	return fmt.Sprintf("invalid csv: %v", err)
}
