package core

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultMinUsableText is the minimum number of runes of trimmed text a
// repaired or legacy-code-page decode must produce before the file is worth
// parsing. Clean UTF-8 only has to be non-blank.
const DefaultMinUsableText = 5

// errNoTransformer is returned for every row when a pipeline over a type
// other than RawRecord has no TransformRow.
var errNoTransformer = errors.New("no row transformer configured")

// TransformFunc maps one validated record into the target type.
type TransformFunc[T any] func(RawRecord) (T, error)

// PassThrough is the identity transform for pipelines over RawRecord.
func PassThrough(row RawRecord) (RawRecord, error) {
	return row, nil
}

// UnusableKind classifies why a file never reached validation.
type UnusableKind string

const (
	UnusableDecodeFatal    UnusableKind = "decode-fatal"
	UnusableDecodeDegraded UnusableKind = "decode-degraded"
	UnusableParse          UnusableKind = "parse-error"
)

// Outcome is the result of running a pipeline over one file. It is one of
// Ready, Invalid or Unusable; only Ready can be handed to a BulkClient.
type Outcome[T any] interface {
	// Result flattens the outcome into records, errors and diagnostics.
	Result() ImportResult[T]
	// State is the session state the outcome settles in.
	State() State
	isOutcome()
}

// Ready holds records from a file that produced no errors at all.
type Ready[T any] struct {
	Records     []T
	Encoding    Encoding
	Diagnostics []Diagnostic
}

func (r Ready[T]) Result() ImportResult[T] {
	return ImportResult[T]{Records: r.Records, Diagnostics: r.Diagnostics}
}

func (Ready[T]) State() State { return StateReady }
func (Ready[T]) isOutcome()   {}

// Invalid holds whatever records could be transformed alongside the errors
// that block submission. The records are for preview only.
type Invalid[T any] struct {
	Records     []T
	Errors      []ValidationError
	Encoding    Encoding
	Diagnostics []Diagnostic
}

func (r Invalid[T]) Result() ImportResult[T] {
	return ImportResult[T]{Records: r.Records, Errors: r.Errors, Diagnostics: r.Diagnostics}
}

func (Invalid[T]) State() State { return StateInvalid }
func (Invalid[T]) isOutcome()   {}

// Unusable reports a file that could not be decoded or parsed.
type Unusable[T any] struct {
	Kind        UnusableKind
	Message     string
	Encoding    Encoding
	Diagnostics []Diagnostic
}

func (r Unusable[T]) Result() ImportResult[T] {
	return ImportResult[T]{
		Errors:      []ValidationError{{Message: r.Message}},
		Diagnostics: r.Diagnostics,
	}
}

func (r Unusable[T]) State() State {
	if r.Kind == UnusableParse {
		return StateParseFailed
	}
	return StateDecodeFailed
}

func (Unusable[T]) isOutcome() {}

// Pipeline is the per-target import configuration. The zero value of every
// optional field is usable: no row check, no transform (RawRecord only) and
// the default minimum text length.
type Pipeline[T any] struct {
	Template        Template
	RequiredColumns []string
	ValidateRow     func(RawRecord) RowCheck
	TransformRow    TransformFunc[T]
	MinUsableText   int
}

// Run decodes, parses, validates and transforms raw. It has no side effects,
// so running it twice on the same bytes gives the same outcome.
func (p *Pipeline[T]) Run(raw RawFile) Outcome[T] {
	return p.run(raw, nil)
}

// run is Run with a hook that is told about each intermediate stage.
func (p *Pipeline[T]) run(raw RawFile, stage func(State)) Outcome[T] {
	enter := func(s State) {
		if stage != nil {
			stage(s)
		}
	}

	enter(StateDecoding)
	decoded := ResolveEncoding(raw.Data)

	if !p.usable(decoded.Text, decoded.Clean()) {
		text := plainText(raw.Data)
		if !p.usable(text, false) {
			return p.unusable(decoded)
		}
		decoded.Text = text
		decoded.Encoding = EncodingUTF8Lossy
		decoded.Diagnostics = append(decoded.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Message:  "The file was read as plain text because automatic decoding produced no usable content. Check the results carefully.",
		})
	}

	enter(StateParsing)
	parsed := ParseRows(decoded.Text)
	if parsed.Failed() {
		return Unusable[T]{
			Kind:        UnusableParse,
			Message:     parsed.ParseErrors[0],
			Encoding:    decoded.Encoding,
			Diagnostics: decoded.Diagnostics,
		}
	}

	enter(StateValidating)
	errs := ValidateRows(parsed.Header, parsed.Rows, p.RequiredColumns, p.ValidateRow)
	records, errs := p.transformRows(parsed.Rows, errs)

	if len(errs) > 0 {
		return Invalid[T]{
			Records:     records,
			Errors:      errs,
			Encoding:    decoded.Encoding,
			Diagnostics: decoded.Diagnostics,
		}
	}
	return Ready[T]{
		Records:     records,
		Encoding:    decoded.Encoding,
		Diagnostics: decoded.Diagnostics,
	}
}

// transformRows transforms every row that has no row-scoped error. A
// transform failure is appended to errs at that row; later rows still run.
func (p *Pipeline[T]) transformRows(rows []RawRecord, errs []ValidationError) ([]T, []ValidationError) {
	failed := make(map[int]bool)
	for _, e := range errs {
		if !e.FileLevel() {
			failed[e.Row] = true
		}
	}

	records := make([]T, 0, len(rows))
	var transformErrs []ValidationError
	for i, row := range rows {
		rowNum := i + FirstDataRow
		if failed[rowNum] {
			continue
		}
		rec, err := p.transform(row)
		if err != nil {
			transformErrs = append(transformErrs, ValidationError{Row: rowNum, Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}

	if len(transformErrs) > 0 {
		errs = mergeByRow(errs, transformErrs)
	}
	return records, errs
}

func (p *Pipeline[T]) transform(row RawRecord) (T, error) {
	if p.TransformRow != nil {
		return p.TransformRow(row)
	}
	if rec, ok := any(row).(T); ok {
		return rec, nil
	}
	var zero T
	return zero, errNoTransformer
}

// usable reports whether text is worth parsing. A clean decode only has to
// be non-blank; repaired or re-interpreted text must also reach the minimum
// length.
func (p *Pipeline[T]) usable(text string, clean bool) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if clean {
		return n > 0
	}
	threshold := p.MinUsableText
	if threshold <= 0 {
		threshold = DefaultMinUsableText
	}
	return n >= threshold
}

func (p *Pipeline[T]) unusable(decoded DecodedText) Unusable[T] {
	for _, d := range decoded.Diagnostics {
		if d.Severity == SeverityError {
			return Unusable[T]{
				Kind:        UnusableDecodeFatal,
				Message:     d.Message,
				Encoding:    decoded.Encoding,
				Diagnostics: decoded.Diagnostics,
			}
		}
	}
	return Unusable[T]{
		Kind:        UnusableDecodeDegraded,
		Message:     "unusable file: decoding left no readable content. " + remediationSteps,
		Encoding:    decoded.Encoding,
		Diagnostics: decoded.Diagnostics,
	}
}

// plainText re-reads raw as UTF-8 without any detection. Invalid sequences
// become U+FFFD.
func plainText(raw []byte) string {
	return strings.ToValidUTF8(string(bytes.TrimPrefix(raw, utf8BOM)), replacementChar)
}

// mergeByRow merges two row-ordered error lists. File-level errors stay at
// the front and, within a row, errors from a keep their position before b.
func mergeByRow(a, b []ValidationError) []ValidationError {
	out := make([]ValidationError, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Row <= b[j].Row {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
