package core

import (
	"fmt"
	"time"
)

// Encoding identifies the character encoding chosen for one import attempt.
type Encoding string

const (
	EncodingUTF8        Encoding = "UTF-8"
	EncodingGB18030     Encoding = "GB18030"
	EncodingWindows1252 Encoding = "Windows-1252"
	EncodingUTF8Lossy   Encoding = "UTF-8-with-issues"
)

// Severity classifies a diagnostic message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a human-readable note produced while decoding a file.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// RawFile is the uploaded byte payload. It is discarded after decoding.
type RawFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// DecodedText is the result of running the encoding resolver over a RawFile.
type DecodedText struct {
	Text        string
	Encoding    Encoding
	Diagnostics []Diagnostic
}

// Clean reports whether the text was valid UTF-8 with nothing to report.
func (d DecodedText) Clean() bool {
	return d.Encoding == EncodingUTF8 && len(d.Diagnostics) == 0
}

// RawRecord maps a column name to its cell value for one parsed line.
type RawRecord map[string]string

// ValidationError is a row-scoped or file-level problem found during import.
// Row is 1-based with the header as row 1; Row 0 marks a file-level error.
type ValidationError struct {
	Row     int    `json:"row" yaml:"row"`
	Column  string `json:"column,omitempty" yaml:"column,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// FileLevel reports whether the error applies to the whole file.
func (e ValidationError) FileLevel() bool {
	return e.Row == 0
}

func (e ValidationError) Error() string {
	if e.FileLevel() {
		return e.Message
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// RowCheck is the result of a caller-supplied row validator.
type RowCheck struct {
	Valid  bool
	Errors []string
}

// ImportResult is the flat view of an import attempt: whatever records were
// produced, every error found, and the decoder diagnostics.
type ImportResult[T any] struct {
	Records     []T               `json:"records" yaml:"records"`
	Errors      []ValidationError `json:"errors" yaml:"errors"`
	Diagnostics []Diagnostic      `json:"diagnostics" yaml:"diagnostics"`
}

// BulkResult is what a bulk-create endpoint reports back. Count may be lower
// than the number of submitted records when the endpoint deduplicates.
type BulkResult struct {
	Count   int `json:"count" yaml:"count"`
	Created int `json:"created,omitempty" yaml:"created,omitempty"`
	Updated int `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// SubmitReport records the outcome of one submission attempt.
type SubmitReport struct {
	Result     BulkResult    `json:"result" yaml:"result"`
	Submitted  int           `json:"submitted" yaml:"submitted"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	FinishedAt time.Time     `json:"finishedAt" yaml:"finishedAt"`
}
