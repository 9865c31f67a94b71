// Package transport defines the collective-messaging collaborator from
// section 6 of the design and provides Local, an in-process
// implementation that simulates one-process-per-rank message passing
// with goroutines and channels — the same substitution
// coordinator.worker already makes in the teacher repo for its
// (non-collective) worker pool. Every ordering guarantee section 5 lists
// is preserved: a "done" reply is observed before the next "go" reuses
// its slot, broadcasts/exchanges rendezvous every rank before releasing
// any of them, and nothing here introduces or hides partial failure.
package transport

import "context"

// Handle is a pending non-blocking send or receive, returned by ISend and
// IRecv and consumed by Wait or WaitAny.
type Handle struct {
	result chan handleResult
}

type handleResult struct {
	value any
	err   error
}

// Transport is the contract section 6 requires: rank/size queries,
// a barrier, broadcast, blocking and non-blocking point-to-point
// send/recv, wait/wait-any over outstanding non-blocking requests, a
// keyed scatter (Exchange), a logical-AND all-reduce, and a wall clock.
type Transport interface {
	Rank() int
	Size() int

	Barrier(ctx context.Context) error

	// Broadcast is collective: every rank calls it with the same root.
	// The root's v is returned to every caller, root's own call included.
	Broadcast(ctx context.Context, v any, root int) (any, error)

	Send(ctx context.Context, v any, peer, tag int) error
	Recv(ctx context.Context, peer, tag int) (any, error)

	ISend(ctx context.Context, v any, peer, tag int) Handle
	IRecv(ctx context.Context, peer, tag int) Handle
	Wait(ctx context.Context, h Handle) (any, error)
	WaitAny(ctx context.Context, handles []Handle) (int, any, error)

	// Exchange is collective: every rank calls it with the same root.
	// The rank at root supplies send, keyed by destination rank; every
	// rank (root included) gets back send[Rank()].
	Exchange(ctx context.Context, send map[int]any, root int) (any, error)

	// AllReduceAnd is collective: every rank contributes v; every rank
	// gets back the logical AND of all contributions.
	AllReduceAnd(ctx context.Context, v bool) (bool, error)

	// WallTime returns seconds since an implementation-defined epoch,
	// monotonic for the lifetime of one Transport.
	WallTime() float64
}
