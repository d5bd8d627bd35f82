package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkClient_Send(t *testing.T) {
	ready := Ready[RawRecord]{Records: []RawRecord{{"name": "Beijing"}, {"name": "Beijing"}}}

	t.Run("reports endpoint counts", func(t *testing.T) {
		c := BulkClient[RawRecord]{Submit: func(_ context.Context, records []RawRecord) (BulkResult, error) {
			return BulkResult{Count: 1, Created: 1}, nil
		}}
		res, err := c.Send(context.Background(), ready)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if res.Count != 1 || res.Created != 1 {
			t.Errorf("Send() = %+v, want deduplicated count 1", res)
		}
	})

	t.Run("rejection surfaced verbatim", func(t *testing.T) {
		rejection := errors.New("duplicate slug")
		c := BulkClient[RawRecord]{Submit: func(context.Context, []RawRecord) (BulkResult, error) {
			return BulkResult{Count: 99}, rejection
		}}
		res, err := c.Send(context.Background(), ready)
		if err != rejection {
			t.Errorf("Send() error = %v, want the callback's error", err)
		}
		if res != (BulkResult{}) {
			t.Errorf("Send() result = %+v, want zero on error", res)
		}
	})

	t.Run("no submitter", func(t *testing.T) {
		var c BulkClient[RawRecord]
		if _, err := c.Send(context.Background(), ready); !errors.Is(err, ErrNoSubmitter) {
			t.Errorf("Send() error = %v, want ErrNoSubmitter", err)
		}
	})

	t.Run("timeout abandons a slow callback", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		c := BulkClient[RawRecord]{
			Timeout: 20 * time.Millisecond,
			Submit: func(context.Context, []RawRecord) (BulkResult, error) {
				<-release
				return BulkResult{Count: 2}, nil
			},
		}
		start := time.Now()
		_, err := c.Send(context.Background(), ready)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Send() error = %v, want deadline exceeded", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Send() did not honor the timeout")
		}
	})

	t.Run("caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := BulkClient[RawRecord]{Submit: func(ctx context.Context, _ []RawRecord) (BulkResult, error) {
			cancel()
			<-ctx.Done()
			return BulkResult{}, ctx.Err()
		}}
		if _, err := c.Send(ctx, ready); !errors.Is(err, context.Canceled) {
			t.Errorf("Send() error = %v, want context.Canceled", err)
		}
	})
}
