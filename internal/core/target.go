package core

import (
	"context"
	"time"
)

// PreviewRecordLimit caps the records copied into a Snapshot.
const PreviewRecordLimit = 50

// DefaultErrorDisplayLimit is how many error lines a summary shows before
// collapsing the rest into "...and N more".
const DefaultErrorDisplayLimit = 10

// TargetInfo describes an import target for listings.
type TargetInfo struct {
	Key             string   `json:"key" yaml:"key"`
	Label           string   `json:"label" yaml:"label"`
	Resource        string   `json:"resource" yaml:"resource"`
	Columns         []string `json:"columns" yaml:"columns"`
	RequiredColumns []string `json:"requiredColumns" yaml:"requiredColumns"`
	TemplateFile    string   `json:"templateFile" yaml:"templateFile"`
	// Example is the record the template's example row imports as.
	Example RawRecord `json:"example" yaml:"example"`
}

// SessionOptions configures a session opened through a Target.
type SessionOptions struct {
	SubmitTimeout time.Duration
	ErrorLimit    int
}

// Target is the type-erased view of a Definition, used by transports that
// pick the target from a request path or a CLI argument.
type Target interface {
	Info() TargetInfo
	TemplateCSV() ([]byte, error)
	Preview(raw RawFile, errorLimit int) Snapshot
	NewSession(opts SessionOptions) SessionHandle
}

// SessionHandle is the type-erased view of a Session.
type SessionHandle interface {
	SelectFile(raw RawFile) Snapshot
	Submit(ctx context.Context) (SubmitReport, error)
	Close()
	Snapshot() Snapshot
	UpdatedAt() time.Time
}

// SubmitFailure pairs a submission error with its user-facing mapping.
type SubmitFailure struct {
	Error string      `json:"error" yaml:"error"`
	User  UserMessage `json:"user" yaml:"user"`
}

// Snapshot is a serializable view of an import attempt.
type Snapshot struct {
	State        State             `json:"state" yaml:"state"`
	FileName     string            `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	Encoding     Encoding          `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Submittable  bool              `json:"submittable" yaml:"submittable"`
	RecordCount  int               `json:"recordCount" yaml:"recordCount"`
	Records      []any             `json:"records,omitempty" yaml:"records,omitempty"`
	ErrorCount   int               `json:"errorCount" yaml:"errorCount"`
	Errors       []ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
	ErrorSummary []string          `json:"errorSummary,omitempty" yaml:"errorSummary,omitempty"`
	Problem      *UserMessage      `json:"problem,omitempty" yaml:"problem,omitempty"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	SubmitError  *SubmitFailure    `json:"submitError,omitempty" yaml:"submitError,omitempty"`
	LastReport   *SubmitReport     `json:"lastReport,omitempty" yaml:"lastReport,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt" yaml:"-"`
}

func fillSnapshot[T any](snap *Snapshot, outcome Outcome[T], errorLimit int) {
	res := outcome.Result()

	switch o := outcome.(type) {
	case Ready[T]:
		snap.Encoding = o.Encoding
		snap.Submittable = true
	case Invalid[T]:
		snap.Encoding = o.Encoding
	case Unusable[T]:
		snap.Encoding = o.Encoding
	}

	snap.RecordCount = len(res.Records)
	n := min(len(res.Records), PreviewRecordLimit)
	snap.Records = make([]any, n)
	for i := range n {
		snap.Records[i] = res.Records[i]
	}

	snap.ErrorCount = len(res.Errors)
	snap.Errors = res.Errors
	snap.ErrorSummary = SummarizeErrors(res.Errors, errorLimit)
	if len(res.Errors) > 0 {
		msg := MapError(res.Errors[0])
		snap.Problem = &msg
	}
	snap.Diagnostics = res.Diagnostics
}

// Definition binds a pipeline over an explicit domain type to its bulk
// submitter. It implements Target.
type Definition[T any] struct {
	Key      string
	Label    string
	Resource string
	Pipeline Pipeline[T]
	Submit   SubmitFunc[T]
}

// Info implements Target.
func (d *Definition[T]) Info() TargetInfo {
	return TargetInfo{
		Key:             d.Key,
		Label:           d.Label,
		Resource:        d.Resource,
		Columns:         d.Pipeline.Template.Header(),
		RequiredColumns: d.Pipeline.RequiredColumns,
		TemplateFile:    d.Pipeline.Template.Filename,
		Example:         d.Pipeline.Template.Example(),
	}
}

// TemplateCSV implements Target.
func (d *Definition[T]) TemplateCSV() ([]byte, error) {
	return d.Pipeline.Template.CSV()
}

// Preview runs the pipeline without a session. Nothing is submitted.
func (d *Definition[T]) Preview(raw RawFile, errorLimit int) Snapshot {
	outcome := d.Pipeline.Run(raw)
	snap := Snapshot{
		State:     outcome.State(),
		FileName:  raw.Name,
		UpdatedAt: time.Now(),
	}
	fillSnapshot(&snap, outcome, errorLimit)
	return snap
}

// NewSession implements Target.
func (d *Definition[T]) NewSession(opts SessionOptions) SessionHandle {
	client := BulkClient[T]{Submit: d.Submit, Timeout: opts.SubmitTimeout}
	limit := opts.ErrorLimit
	if limit <= 0 {
		limit = DefaultErrorDisplayLimit
	}
	return &sessionHandle[T]{
		Session:    NewSession(&d.Pipeline, client),
		errorLimit: limit,
	}
}

type sessionHandle[T any] struct {
	*Session[T]
	errorLimit int
}

func (h *sessionHandle[T]) SelectFile(raw RawFile) Snapshot {
	h.Session.SelectFile(raw)
	return h.Session.Snapshot(h.errorLimit)
}

func (h *sessionHandle[T]) Snapshot() Snapshot {
	return h.Session.Snapshot(h.errorLimit)
}
