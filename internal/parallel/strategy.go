// Package parallel partitions an in-place statement list and executes it
// under one of four strategies: a single serial pass, contiguous chunks on
// local goroutines with a join barrier, contiguous expression chunks shipped
// to remote workers, or one deferred task per element handed to an external
// task-graph scheduler. Out-of-place construction never goes through this
// package; it is always serial.
package parallel

import (
	"context"
	"runtime"

	"github.com/vk/kerngen/internal/ctxlog"
)

// Kind is the execution-partitioning policy.
type Kind int

const (
	KindSerial Kind = iota
	KindThreaded
	KindDistributed
	KindTaskGraph
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindThreaded:
		return "threaded"
	case KindDistributed:
		return "distributed"
	case KindTaskGraph:
		return "taskgraph"
	}
	return "unknown"
}

// Strategy selects a policy and, where meaningful, a worker count.
type Strategy struct {
	Kind    Kind
	Workers int
}

// Serial keeps the statement list as one ordered block.
func Serial() Strategy { return Strategy{Kind: KindSerial} }

// Threaded runs k contiguous chunks as concurrent goroutines with a join
// barrier. k below one is clamped to the machine's logical CPU count.
func Threaded(k int) Strategy {
	if k < 1 {
		k = runtime.NumCPU()
	}
	return Strategy{Kind: KindThreaded, Workers: k}
}

// Distributed ships k contiguous right-hand-side chunks to remote workers.
func Distributed(k int) Strategy {
	if k < 1 {
		k = 1
	}
	return Strategy{Kind: KindDistributed, Workers: k}
}

// TaskGraph defers every element to an external task-graph scheduler.
func TaskGraph() Strategy { return Strategy{Kind: KindTaskGraph} }

// FromLegacyBool adapts the historical boolean flag: true meant "thread
// across all available workers", false meant serial. It never fails; it
// logs a deprecation notice and maps to the enum.
func FromLegacyBool(ctx context.Context, flag bool) Strategy {
	ctxlog.FromContext(ctx).Warn("boolean parallel flag is deprecated, use an explicit strategy",
		"legacyValue", flag)
	if flag {
		return Threaded(runtime.NumCPU())
	}
	return Serial()
}
