package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func cityPipeline(checks *atomic.Int32) *Pipeline[RawRecord] {
	return &Pipeline[RawRecord]{
		RequiredColumns: []string{"name", "slug"},
		ValidateRow: func(RawRecord) RowCheck {
			if checks != nil {
				checks.Add(1)
			}
			return RowCheck{Valid: true}
		},
	}
}

const validCities = "name,slug\nBeijing,beijing\nShanghai,shanghai\n"

func TestSession_SelectFile(t *testing.T) {
	s := NewSession(cityPipeline(nil), BulkClient[RawRecord]{})
	if s.State() != StateIdle {
		t.Fatalf("initial state = %q, want idle", s.State())
	}

	out := s.SelectFile(csvFile(validCities))
	if _, ok := out.(Ready[RawRecord]); !ok {
		t.Fatalf("outcome = %T, want Ready", out)
	}
	if s.State() != StateReady {
		t.Errorf("state = %q, want ready", s.State())
	}

	s.SelectFile(csvFile("name,slug\n,\n"))
	if s.State() != StateInvalid {
		t.Errorf("state = %q, want invalid", s.State())
	}
	if n := len(s.Outcome().Result().Records); n != 0 {
		t.Errorf("records from previous file leaked: %d", n)
	}
}

func TestSession_SubmitRequiresReady(t *testing.T) {
	var called atomic.Int32
	client := BulkClient[RawRecord]{Submit: func(context.Context, []RawRecord) (BulkResult, error) {
		called.Add(1)
		return BulkResult{}, nil
	}}
	s := NewSession(cityPipeline(nil), client)

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotSubmittable) {
		t.Errorf("Submit() from idle = %v, want ErrNotSubmittable", err)
	}

	s.SelectFile(csvFile("name,slug\nBeijing,\n"))
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotSubmittable) {
		t.Errorf("Submit() from invalid = %v, want ErrNotSubmittable", err)
	}
	if called.Load() != 0 {
		t.Error("submit callback must not run for an invalid file")
	}
}

func TestSession_SubmitSuccessResetsToIdle(t *testing.T) {
	var got []RawRecord
	client := BulkClient[RawRecord]{Submit: func(_ context.Context, records []RawRecord) (BulkResult, error) {
		got = records
		return BulkResult{Count: len(records), Created: 1, Updated: 1}, nil
	}}
	s := NewSession(cityPipeline(nil), client)
	s.SelectFile(csvFile(validCities))

	report, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("submitted %d records, want 2", len(got))
	}
	if report.Result.Count != 2 || report.Submitted != 2 {
		t.Errorf("report = %+v", report)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q, want idle", s.State())
	}
	if s.Outcome() != nil {
		t.Error("outcome should be cleared after a successful submit")
	}
	if last := s.Snapshot(0).LastReport; last == nil || last.Result.Created != 1 {
		t.Errorf("snapshot last report = %+v", last)
	}
}

func TestSession_SubmitFailedRetry(t *testing.T) {
	var (
		checks atomic.Int32
		calls  atomic.Int32
	)
	client := BulkClient[RawRecord]{Submit: func(_ context.Context, records []RawRecord) (BulkResult, error) {
		if calls.Add(1) == 1 {
			return BulkResult{}, errors.New("duplicate slug")
		}
		return BulkResult{Count: len(records)}, nil
	}}
	s := NewSession(cityPipeline(&checks), client)
	s.SelectFile(csvFile(validCities))
	checksAfterSelect := checks.Load()

	_, err := s.Submit(context.Background())
	if err == nil || err.Error() != "duplicate slug" {
		t.Fatalf("Submit() error = %v, want verbatim \"duplicate slug\"", err)
	}
	if s.State() != StateSubmitFailed {
		t.Errorf("state = %q, want submit_failed", s.State())
	}
	if n := len(s.Outcome().Result().Records); n != 2 {
		t.Errorf("records retained = %d, want 2", n)
	}
	snap := s.Snapshot(DefaultErrorDisplayLimit)
	if snap.SubmitError == nil || snap.SubmitError.Error != "duplicate slug" || snap.SubmitError.User.Code != "DB001" {
		t.Errorf("snapshot submit error = %+v", snap.SubmitError)
	}

	report, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if report.Result.Count != 2 {
		t.Errorf("retry count = %d, want 2", report.Result.Count)
	}
	if calls.Load() != 2 {
		t.Errorf("submit called %d times, want 2", calls.Load())
	}
	if checks.Load() != checksAfterSelect {
		t.Error("retry re-ran the pipeline")
	}
}

func TestSession_NewFileCancelsSubmit(t *testing.T) {
	started := make(chan struct{})
	client := BulkClient[RawRecord]{Submit: func(ctx context.Context, _ []RawRecord) (BulkResult, error) {
		close(started)
		<-ctx.Done()
		return BulkResult{}, ctx.Err()
	}}
	s := NewSession(cityPipeline(nil), client)
	s.SelectFile(csvFile(validCities))

	var (
		wg        sync.WaitGroup
		submitErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, submitErr = s.Submit(context.Background())
	}()

	<-started
	if s.State() != StateSubmitting {
		t.Errorf("state = %q, want submitting", s.State())
	}

	s.SelectFile(csvFile("name,slug\nXi'an,xian\n"))
	wg.Wait()

	if !errors.Is(submitErr, ErrSuperseded) {
		t.Errorf("Submit() error = %v, want ErrSuperseded", submitErr)
	}
	if s.State() != StateReady {
		t.Errorf("state = %q, want ready for the new file", s.State())
	}
	if n := len(s.Outcome().Result().Records); n != 1 {
		t.Errorf("records = %d, want 1 from the new file", n)
	}
}

func TestSession_CloseCancelsSubmit(t *testing.T) {
	started := make(chan struct{})
	client := BulkClient[RawRecord]{Submit: func(ctx context.Context, _ []RawRecord) (BulkResult, error) {
		close(started)
		<-ctx.Done()
		return BulkResult{}, ctx.Err()
	}}
	s := NewSession(cityPipeline(nil), client)
	s.SelectFile(csvFile(validCities))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	<-started
	s.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Submit() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return after Close")
	}
	if s.State() != StateIdle || s.Outcome() != nil {
		t.Errorf("after Close: state %q, outcome %v", s.State(), s.Outcome())
	}
}

func TestSession_SnapshotCapsErrors(t *testing.T) {
	s := NewSession(cityPipeline(nil), BulkClient[RawRecord]{})

	data := "name,slug\n"
	for i := 0; i < 15; i++ {
		data += ",\n"
	}
	s.SelectFile(csvFile(data))

	snap := s.Snapshot(5)
	if snap.ErrorCount != 30 || len(snap.Errors) != 30 {
		t.Errorf("ErrorCount = %d, len(Errors) = %d, want 30", snap.ErrorCount, len(snap.Errors))
	}
	if len(snap.ErrorSummary) != 6 || snap.ErrorSummary[5] != "...and 25 more" {
		t.Errorf("ErrorSummary = %v", snap.ErrorSummary)
	}
	if snap.Submittable {
		t.Error("invalid file must not be submittable")
	}
	if snap.Problem == nil || snap.Problem.Code != "VAL003" {
		t.Errorf("Problem = %+v, want VAL003", snap.Problem)
	}
}
