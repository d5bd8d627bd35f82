package core

// validation.go checks parsed rows before they are transformed.
//
// Validation happens at two levels:
//  1. File level: the file has data rows and every required column exists
//  2. Row level: the caller's row check, then required-field presence
//
// Both row-level checks always run, and their errors are emitted in that
// fixed order within a row. Rows are numbered from 2 (the header is row 1).

import (
	"fmt"
	"strings"
)

// FirstDataRow is the row number of the first record after the header.
const FirstDataRow = 2

// remediationSteps is shown whenever the file looks like encoding damage
// turned it into an empty or degenerate table.
const remediationSteps = "This usually means the file's text encoding was not recognized. " +
	"Open the file in Excel and choose File > Save As > \"CSV UTF-8 (Comma delimited)\", " +
	"or download it from Google Sheets via File > Download > Comma-separated values, then upload it again."

// ValidateRows checks rows against the required columns and the optional
// caller-supplied row check. header is the parsed header row.
func ValidateRows(header []string, rows []RawRecord, required []string, check func(RawRecord) RowCheck) []ValidationError {
	if len(rows) == 0 {
		return []ValidationError{{
			Message: "empty file: no data rows were found. " + remediationSteps,
		}}
	}

	var errs []ValidationError

	missing := MissingColumns(header, required)
	if len(missing) > 0 {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		})
	}
	present := presentColumns(required, missing)

	for i, row := range rows {
		errs = append(errs, validateRow(i+FirstDataRow, row, present, check)...)
	}
	return errs
}

// validateRow runs the caller's check and then the required-field check for
// a single row.
// errRowCheckFailed stands in for a row check that rejected a row without
// saying why.
const errRowCheckFailed = "row failed validation"

func validateRow(rowNum int, row RawRecord, required []string, check func(RawRecord) RowCheck) []ValidationError {
	var errs []ValidationError

	if check != nil {
		res := check(row)
		for _, msg := range res.Errors {
			errs = append(errs, ValidationError{Row: rowNum, Message: msg})
		}
		if !res.Valid && len(res.Errors) == 0 {
			errs = append(errs, ValidationError{Row: rowNum, Message: errRowCheckFailed})
		}
	}

	for _, col := range required {
		v, ok := row[col]
		if !ok || strings.TrimSpace(v) == "" {
			errs = append(errs, ValidationError{
				Row:     rowNum,
				Column:  col,
				Message: fmt.Sprintf("required field %q is empty", col),
			})
		}
	}

	return errs
}

// MissingColumns returns the required columns absent from header, in the
// order they were required.
func MissingColumns(header, required []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}

	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func presentColumns(required, missing []string) []string {
	if len(missing) == 0 {
		return required
	}
	skip := make(map[string]bool, len(missing))
	for _, m := range missing {
		skip[m] = true
	}
	out := make([]string, 0, len(required)-len(missing))
	for _, col := range required {
		if !skip[col] {
			out = append(out, col)
		}
	}
	return out
}
