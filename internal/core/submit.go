package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultSubmitTimeout bounds a single bulk submission.
const DefaultSubmitTimeout = 60 * time.Second

// ErrNoSubmitter is returned by Send when the client has no callback.
var ErrNoSubmitter = errors.New("no bulk submitter configured")

// SubmitFunc delivers records to a bulk-create endpoint in a single call.
type SubmitFunc[T any] func(ctx context.Context, records []T) (BulkResult, error)

// BulkClient sends the records of a Ready outcome to a bulk endpoint. It
// never retries; a rejection from Submit is returned unchanged.
type BulkClient[T any] struct {
	Submit  SubmitFunc[T]
	Timeout time.Duration
}

type sendResult struct {
	res BulkResult
	err error
}

// Send submits ready.Records. The call is abandoned when ctx is cancelled or
// the timeout expires, even if Submit ignores its context.
func (c BulkClient[T]) Send(ctx context.Context, ready Ready[T]) (BulkResult, error) {
	if c.Submit == nil {
		return BulkResult{}, ErrNoSubmitter
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		res, err := c.Submit(ctx, ready.Records)
		done <- sendResult{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return BulkResult{}, out.err
		}
		return out.res, nil
	case <-ctx.Done():
		return BulkResult{}, fmt.Errorf("bulk submission abandoned: %w", ctx.Err())
	}
}
