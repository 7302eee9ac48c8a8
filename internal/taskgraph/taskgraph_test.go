package taskgraph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_CollectOrdersByHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewPool(4)

	// Deferred tasks may finish in any order; results must come back in
	// handle order regardless.
	var ds []Deferred
	for i := 0; i < 20; i++ {
		i := i
		ds = append(ds, p.Defer(ctx, func(context.Context) (float64, error) {
			return float64(i * i), nil
		}))
	}

	got, err := p.Collect(ctx, ds)
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, float64(i*i), v)
	}
}

func TestPool_FailFast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewPool(1)
	boom := errors.New("element blew up")

	var ran atomic.Int32
	ds := []Deferred{
		p.Defer(ctx, func(context.Context) (float64, error) {
			ran.Add(1)
			return 0, boom
		}),
		p.Defer(ctx, func(context.Context) (float64, error) {
			ran.Add(1)
			return 1, nil
		}),
	}

	_, err := p.Collect(ctx, ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the root cause is preferred over cancellation noise")
	assert.Contains(t, err.Error(), "collection failed")

	// With one worker the failure cancels the run before the second task
	// starts.
	assert.Equal(t, int32(1), ran.Load())
}

func TestPool_SingleWorkerRunsEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewPool(1)

	ds := []Deferred{
		p.Defer(ctx, func(context.Context) (float64, error) { return 1, nil }),
		p.Defer(ctx, func(context.Context) (float64, error) { return 2, nil }),
		p.Defer(ctx, func(context.Context) (float64, error) { return 3, nil }),
	}

	got, err := p.Collect(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestPool_CollectEmpty(t *testing.T) {
	t.Parallel()

	p := NewPool(2)
	got, err := p.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPool_RejectsForeignHandle(t *testing.T) {
	t.Parallel()

	p := NewPool(1)
	other := NewPool(1)
	d := other.Defer(context.Background(), func(context.Context) (float64, error) { return 0, nil })

	// Handles from another pool of the same concrete type are fine; a
	// foreign Deferred implementation is not.
	_, err := p.Collect(context.Background(), []Deferred{d, fakeDeferred{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign deferred handle")
}

type fakeDeferred struct{}

func (fakeDeferred) deferred() {}

func TestNewPool_ClampsWorkers(t *testing.T) {
	t.Parallel()

	p := NewPool(0)
	got, err := p.Collect(context.Background(), []Deferred{
		p.Defer(context.Background(), func(context.Context) (float64, error) { return 7, nil }),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, got)
}
