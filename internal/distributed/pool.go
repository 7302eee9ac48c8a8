// Package distributed defines the remote-worker collaborator contract for
// the distributed strategy, plus two implementations: an in-process pool
// and a socket.io transport.
//
// The contract is asynchronous request/response: Evaluate ships one chunk
// of lowered right-hand-side expressions to a worker and returns a handle;
// Fetch is the synchronization barrier that blocks for that worker's result
// sub-array. There is no timeout and no retry at this layer — any worker
// failure is fatal to the whole generation, surfaced by Fetch.
package distributed

import (
	"context"
	"fmt"

	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/expr"
)

// Pending is an in-flight chunk evaluation.
type Pending interface {
	// Fetch blocks until the worker's result sub-array is available. One
	// value per shipped expression, in expression order.
	Fetch(ctx context.Context) ([]float64, error)
}

// Pool is the collaborator contract: a fixed, known set of workers that
// each evaluate expression chunks against a shipped environment.
type Pool interface {
	// Workers returns the fixed worker count.
	Workers() int
	// Evaluate asynchronously ships a chunk to the given worker.
	Evaluate(ctx context.Context, worker int, exprs []expr.Node, env expr.MapEnv) Pending
}

type result struct {
	values []float64
	err    error
}

type pending struct {
	ch chan result
}

func (p pending) Fetch(ctx context.Context) ([]float64, error) {
	select {
	case r := <-p.ch:
		return r.values, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LocalPool evaluates chunks on in-process goroutines. It exists so the
// distributed strategy is runnable and testable without a remote fleet.
// Chunks still round-trip through the wire codec, so a kernel that works on
// a LocalPool ships the exact same payloads a remote transport would.
type LocalPool struct {
	workers int
}

// NewLocalPool returns a pool with the given fixed worker count, clamped to
// at least one.
func NewLocalPool(workers int) *LocalPool {
	if workers < 1 {
		workers = 1
	}
	return &LocalPool{workers: workers}
}

// Workers implements Pool.
func (p *LocalPool) Workers() int { return p.workers }

// Evaluate implements Pool.
func (p *LocalPool) Evaluate(ctx context.Context, worker int, exprs []expr.Node, env expr.MapEnv) Pending {
	logger := ctxlog.FromContext(ctx)
	ch := make(chan result, 1)
	go func() {
		logger.Debug("Evaluating chunk locally.", "worker", worker, "size", len(exprs))
		payload, err := encodeChunk(worker, exprs, env)
		if err != nil {
			ch <- result{err: err}
			return
		}
		values, err := evalPayload(payload)
		if err != nil {
			ch <- result{err: fmt.Errorf("distributed: worker %d: %w", worker, err)}
			return
		}
		ch <- result{values: values}
	}()
	return pending{ch: ch}
}
