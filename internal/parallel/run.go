package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/kerngen/internal/assemble"
	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/distributed"
	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/shape"
	"github.com/vk/kerngen/internal/taskgraph"
)

// Collaborators are the external execution facilities a strategy may need.
// The task-graph strategy requires Scheduler; the distributed strategy
// requires Pool. The others ignore both.
type Collaborators struct {
	Scheduler taskgraph.Scheduler
	Pool      distributed.Pool
}

// Validate checks that the collaborators a strategy needs are present. It
// runs before any lowering or assembly work.
func (c Collaborators) Validate(s Strategy) error {
	switch s.Kind {
	case KindTaskGraph:
		if c.Scheduler == nil {
			return taskgraph.ErrUnavailable
		}
	case KindDistributed:
		if c.Pool == nil {
			return fmt.Errorf("parallel: distributed strategy requires a worker pool")
		}
	}
	return nil
}

// Run executes an in-place statement list into out under the strategy. The
// statement partitions are contiguous and disjoint by construction, so the
// threaded path needs no locking; the only synchronization point is the
// join barrier before Run returns.
func Run(ctx context.Context, stmts []assemble.Statement, out shape.Writable, env expr.MapEnv, s Strategy, collab Collaborators) error {
	if err := collab.Validate(s); err != nil {
		return err
	}

	switch s.Kind {
	case KindSerial:
		return runSerial(stmts, out, env)
	case KindThreaded:
		return runThreaded(ctx, stmts, out, env, s.Workers)
	case KindDistributed:
		return runDistributed(ctx, stmts, out, env, collab.Pool)
	case KindTaskGraph:
		return runTaskGraph(ctx, stmts, out, env, collab.Scheduler)
	}
	return fmt.Errorf("parallel: unknown strategy %v", s.Kind)
}

func runSerial(stmts []assemble.Statement, out shape.Writable, env expr.MapEnv) error {
	for _, st := range stmts {
		v, err := expr.Eval(st.RHS, env)
		if err != nil {
			return err
		}
		if err := out.Set(st.Path, v); err != nil {
			return err
		}
	}
	return nil
}

// runThreaded schedules each contiguous chunk as an independent goroutine.
// Once spawned, every partition runs to completion: there is no
// cancellation, and the WaitGroup join guarantees all writes are visible
// before control returns.
func runThreaded(ctx context.Context, stmts []assemble.Statement, out shape.Writable, env expr.MapEnv, workers int) error {
	chunks, err := Partition(stmts, workers)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Running threaded kernel.", "statements", len(stmts), "chunks", len(chunks))

	errs := make([]error, len(chunks))
	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for i, chunk := range chunks {
		go func(i int, chunk []assemble.Statement) {
			defer wg.Done()
			errs[i] = runSerial(chunk, out, env)
		}(i, chunk)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("parallel: chunk %d: %w", i, err)
		}
	}
	return nil
}

// runDistributed partitions the right-hand-side expressions (not the
// statements), ships each chunk to its worker, and only after the fetch
// barrier has collected every sub-array does it run the per-element writes,
// each reading from its worker's result slot instead of recomputing.
func runDistributed(ctx context.Context, stmts []assemble.Statement, out shape.Writable, env expr.MapEnv, pool distributed.Pool) error {
	logger := ctxlog.FromContext(ctx)
	workers := pool.Workers()

	exprs := make([]expr.Node, len(stmts))
	for i, st := range stmts {
		exprs[i] = st.RHS
	}
	chunks, err := Partition(exprs, workers)
	if err != nil {
		return err
	}

	logger.Debug("Shipping chunks to workers.", "statements", len(stmts), "workers", workers)
	pendings := make([]distributed.Pending, len(chunks))
	for i, chunk := range chunks {
		pendings[i] = pool.Evaluate(ctx, i, chunk, env)
	}

	// Fetch barrier: every worker result must arrive before any dependent
	// statement executes. A single failure aborts with no retry.
	results := make([][]float64, len(chunks))
	for i, p := range pendings {
		sub, err := p.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("parallel: distributed fetch for chunk %d: %w", i, err)
		}
		results[i] = sub
	}

	at := 0
	for i, sub := range results {
		for j, v := range sub {
			if err := out.Set(stmts[at].Path, v); err != nil {
				return fmt.Errorf("parallel: writing worker %d result %d: %w", i, j, err)
			}
			at++
		}
	}
	return nil
}

// runTaskGraph defers one computation per output element and lets the
// scheduler place them; Collect is the reduction that concatenates every
// element result, which is then written out in statement order.
func runTaskGraph(ctx context.Context, stmts []assemble.Statement, out shape.Writable, env expr.MapEnv, sched taskgraph.Scheduler) error {
	deferred := make([]taskgraph.Deferred, len(stmts))
	for i, st := range stmts {
		rhs := st.RHS
		deferred[i] = sched.Defer(ctx, func(context.Context) (float64, error) {
			return expr.Eval(rhs, env)
		})
	}

	values, err := sched.Collect(ctx, deferred)
	if err != nil {
		return err
	}
	if len(values) != len(stmts) {
		return fmt.Errorf("parallel: scheduler returned %d results for %d elements", len(values), len(stmts))
	}
	for i, v := range values {
		if err := out.Set(stmts[i].Path, v); err != nil {
			return err
		}
	}
	return nil
}
