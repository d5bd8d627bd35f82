package core

// session.go implements the per-modal import state machine.
//
// A Session owns at most one file at a time:
//
//	Idle -> FileSelected -> Decoding -> {DecodeFailed | Parsing}
//	     -> {ParseFailed | Validating} -> {Ready | Invalid}
//	     -> Submitting -> {Done -> Idle | SubmitFailed}
//
// Selecting a new file or closing the session bumps the generation counter
// and cancels any in-flight submission. Work that finishes for an older
// generation is dropped.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is a step of the import state machine.
type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "file_selected"
	StateDecoding     State = "decoding"
	StateDecodeFailed State = "decode_failed"
	StateParsing      State = "parsing"
	StateParseFailed  State = "parse_failed"
	StateValidating   State = "validating"
	StateReady        State = "ready"
	StateInvalid      State = "invalid"
	StateSubmitting   State = "submitting"
	StateSubmitFailed State = "submit_failed"
	StateDone         State = "done"
)

var (
	// ErrNotSubmittable is returned by Submit outside Ready and SubmitFailed.
	ErrNotSubmittable = errors.New("import is not ready to submit")

	// ErrSuperseded is returned when the session moved on to another file
	// (or was closed) while a submission was in flight.
	ErrSuperseded = errors.New("import was superseded by a newer file")
)

// Session is one import modal. It is safe for concurrent use.
type Session[T any] struct {
	pipeline *Pipeline[T]
	client   BulkClient[T]

	mu         sync.Mutex
	state      State
	generation uint64
	fileName   string
	outcome    Outcome[T]
	cancel     context.CancelFunc
	submitErr  error
	lastReport *SubmitReport
	updatedAt  time.Time
}

// NewSession creates an idle session that runs p and submits through client.
func NewSession[T any](p *Pipeline[T], client BulkClient[T]) *Session[T] {
	return &Session[T]{
		pipeline:  p,
		client:    client,
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

// SelectFile discards all prior state and runs the pipeline over raw.
func (s *Session[T]) SelectFile(raw RawFile) Outcome[T] {
	s.mu.Lock()
	s.resetLocked()
	gen := s.generation
	s.fileName = raw.Name
	s.setStateLocked(StateFileSelected)
	s.mu.Unlock()

	outcome := s.pipeline.run(raw, func(st State) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen {
			s.setStateLocked(st)
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return outcome
	}
	s.outcome = outcome
	s.setStateLocked(outcome.State())
	return outcome
}

// Submit sends the current records. It is allowed from Ready, and from
// SubmitFailed as a retry that reuses the already validated records.
func (s *Session[T]) Submit(ctx context.Context) (SubmitReport, error) {
	s.mu.Lock()
	ready, ok := s.outcome.(Ready[T])
	if !ok || (s.state != StateReady && s.state != StateSubmitFailed) {
		state := s.state
		s.mu.Unlock()
		return SubmitReport{}, fmt.Errorf("%w (state %s)", ErrNotSubmittable, state)
	}
	gen := s.generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.submitErr = nil
	s.setStateLocked(StateSubmitting)
	s.mu.Unlock()

	start := time.Now()
	res, err := s.client.Send(ctx, ready)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return SubmitReport{}, ErrSuperseded
	}
	s.cancel = nil

	if err != nil {
		s.submitErr = err
		s.setStateLocked(StateSubmitFailed)
		return SubmitReport{}, err
	}

	report := SubmitReport{
		Result:     res,
		Submitted:  len(ready.Records),
		Duration:   time.Since(start),
		FinishedAt: time.Now(),
	}
	s.setStateLocked(StateDone)
	s.resetLocked()
	s.lastReport = &report
	return report, nil
}

// Close cancels any in-flight submission and discards everything, including
// the last submission report.
func (s *Session[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.lastReport = nil
}

// State returns the current state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the outcome of the current file, or nil when idle.
func (s *Session[T]) Outcome() Outcome[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// UpdatedAt returns when the session last changed state.
func (s *Session[T]) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Snapshot returns a transport-friendly view of the session. At most
// errorLimit error lines are summarized; Errors always holds all of them.
func (s *Session[T]) Snapshot(errorLimit int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:     s.state,
		FileName:  s.fileName,
		UpdatedAt: s.updatedAt,
	}
	if s.outcome != nil {
		fillSnapshot(&snap, s.outcome, errorLimit)
	}
	if ue := NewUserError(s.submitErr); ue != nil {
		snap.SubmitError = &SubmitFailure{Error: ue.Technical.Error(), User: ue.User}
	}
	if s.lastReport != nil {
		r := *s.lastReport
		snap.LastReport = &r
	}
	return snap
}

// resetLocked cancels in-flight work and returns to Idle. The caller holds mu.
func (s *Session[T]) resetLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.fileName = ""
	s.outcome = nil
	s.submitErr = nil
	s.setStateLocked(StateIdle)
}

func (s *Session[T]) setStateLocked(st State) {
	if s.state != st {
		slog.Debug("import state change", "from", s.state, "to", st, "file", s.fileName)
	}
	s.state = st
	s.updatedAt = time.Now()
}
