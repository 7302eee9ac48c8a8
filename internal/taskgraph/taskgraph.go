// Package taskgraph defines the external scheduler contract the task-graph
// strategy requires, and an in-process reference implementation.
//
// The contract is two primitives: defer a computation, and collect the
// results of previously deferred computations. Element computations are
// unordered and may run on any worker the scheduler chooses; Collect is the
// reduction point that blocks on all of them. Cancellation and timeouts are
// entirely the scheduler's concern.
package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/kerngen/internal/ctxlog"
)

// ErrUnavailable is returned by generation entry points when the task-graph
// strategy is requested without a scheduler collaborator. It is detected
// before any lowering work begins.
var ErrUnavailable = errors.New("taskgraph: scheduler unavailable")

// Task computes one deferred output element.
type Task func(ctx context.Context) (float64, error)

// Deferred is an opaque handle for one deferred computation.
type Deferred interface {
	deferred()
}

// Scheduler is the collaborator contract.
type Scheduler interface {
	// Defer registers a computation for later execution.
	Defer(ctx context.Context, t Task) Deferred
	// Collect runs or awaits every handle and concatenates the results in
	// handle order. Any task failure fails the whole collection.
	Collect(ctx context.Context, ds []Deferred) ([]float64, error)
}

type nodeState int32

const (
	statePending nodeState = iota
	stateRunning
	stateDone
	stateFailed
)

// node is one deferred element computation.
type node struct {
	seq    int
	task   Task
	state  atomic.Int32
	result float64
	err    error
}

func (*node) deferred() {}

// Pool is the in-process Scheduler: a fixed worker pool draining a ready
// channel, with a WaitGroup join and fail-fast cancellation. All deferred
// nodes are independent, so every node is ready the moment Collect starts.
type Pool struct {
	workers int

	mu   sync.Mutex
	next int
}

// NewPool returns an in-process scheduler running at most workers tasks
// concurrently. A worker count below one is clamped to one.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Defer implements Scheduler.
func (p *Pool) Defer(_ context.Context, t Task) Deferred {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := &node{seq: p.next, task: t}
	p.next++
	return n
}

// Collect implements Scheduler. Results are ordered by handle position, not
// completion order.
func (p *Pool) Collect(ctx context.Context, ds []Deferred) ([]float64, error) {
	logger := ctxlog.FromContext(ctx)

	nodes := make([]*node, len(ds))
	for i, d := range ds {
		n, ok := d.(*node)
		if !ok {
			return nil, fmt.Errorf("taskgraph: foreign deferred handle %T", d)
		}
		nodes[i] = n
	}

	readyChan := make(chan *node, len(nodes))
	for _, n := range nodes {
		readyChan <- n
	}
	close(readyChan)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(p.workers)
	logger.Debug("Starting task-graph worker pool.", "workers", p.workers, "tasks", len(nodes))
	for i := 0; i < p.workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for n := range readyChan {
				if runCtx.Err() != nil {
					n.state.Store(int32(stateFailed))
					n.err = runCtx.Err()
					continue
				}
				n.state.Store(int32(stateRunning))
				v, err := n.task(runCtx)
				if err != nil {
					logger.Error("Deferred task failed.", "workerID", workerID, "task", n.seq, "error", err)
					n.state.Store(int32(stateFailed))
					n.err = err
					cancel()
					continue
				}
				n.result = v
				n.state.Store(int32(stateDone))
			}
		}(i)
	}
	wg.Wait()

	out := make([]float64, len(nodes))
	var rootCause error
	for i, n := range nodes {
		if nodeState(n.state.Load()) == stateFailed {
			// A cancellation error is a symptom; prefer the first real cause.
			if rootCause == nil || errors.Is(rootCause, context.Canceled) {
				rootCause = n.err
			}
			continue
		}
		out[i] = n.result
	}
	if rootCause != nil {
		return nil, fmt.Errorf("taskgraph: collection failed: %w", rootCause)
	}
	return out, nil
}
