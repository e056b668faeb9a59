package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how an oracle call is retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CallTimeout     time.Duration // per attempt; zero disables
}

// DefaultRetryPolicy returns the policy used by the CLI.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		CallTimeout:     60 * time.Second,
	}
}

// Retrying wraps an Oracle with a per-call timeout and bounded exponential
// backoff. When retries are exhausted the last *Error is returned with
// Attempts set.
type Retrying struct {
	next   Oracle
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps next. A nil logger uses slog.Default().
func WithRetry(next Oracle, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Assign implements Oracle.
func (r *Retrying) Assign(ctx context.Context, req *AssignRequest) (*AssignResult, error) {
	var out *AssignResult
	err := r.do(ctx, "assign", func(ctx context.Context) (err error) {
		out, err = r.next.Assign(ctx, req)
		return err
	})
	return out, err
}

// Tag implements Oracle.
func (r *Retrying) Tag(ctx context.Context, req *TagRequest) (*TagResult, error) {
	var out *TagResult
	err := r.do(ctx, "tag", func(ctx context.Context) (err error) {
		out, err = r.next.Tag(ctx, req)
		return err
	})
	return out, err
}

// Embed implements Oracle.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, "embed", func(ctx context.Context) (err error) {
		out, err = r.next.Embed(ctx, text)
		return err
	})
	return out, err
}

// SectionBoundary implements Oracle.
func (r *Retrying) SectionBoundary(ctx context.Context, req *BoundaryRequest) (*BoundaryResult, error) {
	var out *BoundaryResult
	err := r.do(ctx, "section_boundary", func(ctx context.Context) (err error) {
		out, err = r.next.SectionBoundary(ctx, req)
		return err
	})
	return out, err
}

// Summarize implements Oracle.
func (r *Retrying) Summarize(ctx context.Context, req *SummarizeRequest) (string, error) {
	var out string
	err := r.do(ctx, "summarize", func(ctx context.Context) (err error) {
		out, err = r.next.Summarize(ctx, req)
		return err
	})
	return out, err
}

func (r *Retrying) do(ctx context.Context, op string, call func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)

	attempts := 0
	var last *Error
	attempt := func() error {
		attempts++
		callCtx, cancel := r.callContext(ctx)
		defer cancel()

		err := call(callCtx)
		if err == nil {
			return nil
		}
		last = classify(op, err)
		if ctx.Err() != nil {
			return backoff.Permanent(last)
		}
		return last
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("oracle call failed, retrying",
			"op", op, "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err == nil {
		return nil
	}
	if last == nil {
		// cancelled before the first attempt completed
		return &Error{Op: op, Kind: KindTimeout, Attempts: attempts, Cause: err}
	}
	out := *last
	out.Op = op
	out.Attempts = attempts
	if errors.Is(err, context.Canceled) && !errors.Is(out.Cause, context.Canceled) {
		out.Message = "cancelled while retrying"
	}
	return &out
}

func (r *Retrying) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.policy.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.policy.CallTimeout)
}
