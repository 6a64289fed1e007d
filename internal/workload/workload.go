// Package workload holds the closures the master and worker binaries
// both link at startup. Because the closure registry resolves a
// Closure's identifier against whatever is registered in the running
// process (internal/closure's "stable static pointer" contract), the
// master and worker sides of jobplane must register the exact same
// table -- in practice, they are the same executable running under two
// different subcommands, and this package is where that shared table
// lives.
package workload

import (
	"context"
	"fmt"

	"jobplane/internal/closure"
)

// IncrementID names the built-in "add one" remote function used by the
// lifecycle driver's default cluster computation and exercised in this
// package's tests.
const IncrementID = "workload.increment"

// Increment is the registered RemoteFunction[int, int] computing x+1 on
// whichever worker it is dispatched to.
var Increment *closure.RemoteFunction[int, int]

// Register populates r with every closure jobplane ships. Both
// cmd/jobplane's master and worker subcommands call this at startup so
// a Closure built against Increment on the master resolves to the
// identical function on the worker.
func Register(r *closure.Registry) {
	Increment = closure.Define(r, IncrementID, increment, closure.JSONCodec[int]("int"), closure.JSONCodec[int]("int"))
}

func increment(ctx context.Context, x int) (int, error) {
	if x < 0 {
		return 0, fmt.Errorf("workload: increment does not accept negative input, got %d", x)
	}
	return x + 1, nil
}
