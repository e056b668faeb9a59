package oracle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) oracle.RetryPolicy {
	return oracle.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		CallTimeout:     time.Second,
	}
}

func TestRetrying_SucceedsAfterTransientFailures(t *testing.T) {
	var n atomic.Int32
	stub := &testutil.StubOracle{
		AssignFunc: func(context.Context, *oracle.AssignRequest) (*oracle.AssignResult, error) {
			if n.Add(1) < 3 {
				return nil, &oracle.Error{Op: "assign", Kind: oracle.KindMalformed, Message: "bad json"}
			}
			return &oracle.AssignResult{Extend: true}, nil
		},
	}
	r := oracle.WithRetry(stub, fastPolicy(4), nil)

	res, err := r.Assign(context.Background(), &oracle.AssignRequest{})
	require.NoError(t, err)
	assert.True(t, res.Extend)
	assert.Equal(t, 3, stub.Calls("assign"))
}

func TestRetrying_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("upstream unavailable")
	stub := &testutil.StubOracle{
		TagFunc: func(context.Context, *oracle.TagRequest) (*oracle.TagResult, error) {
			return nil, cause
		},
	}
	r := oracle.WithRetry(stub, fastPolicy(3), nil)

	_, err := r.Tag(context.Background(), &oracle.TagRequest{})
	require.Error(t, err)

	var oerr *oracle.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, oracle.KindProvider, oerr.Kind)
	assert.Equal(t, 3, oerr.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, stub.Calls("tag"))
}

func TestRetrying_CallTimeout(t *testing.T) {
	stub := &testutil.StubOracle{
		EmbedFunc: func(ctx context.Context, _ string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	policy := fastPolicy(2)
	policy.CallTimeout = 5 * time.Millisecond
	r := oracle.WithRetry(stub, policy, nil)

	_, err := r.Embed(context.Background(), "text")
	var oerr *oracle.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, oracle.KindTimeout, oerr.Kind)
	assert.Equal(t, 2, oerr.Attempts)
}

func TestRetrying_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &testutil.StubOracle{
		SummarizeFunc: func(context.Context, *oracle.SummarizeRequest) (string, error) {
			cancel()
			return "", errors.New("boom")
		},
	}
	r := oracle.WithRetry(stub, fastPolicy(5), nil)

	_, err := r.Summarize(ctx, &oracle.SummarizeRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, stub.Calls("summarize"))
}
