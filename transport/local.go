package transport

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/parallaxfs/ckptfetch/errkind"
)

// envelope is one point-to-point message, tagged so a receiver can
// distinguish concurrent protocols sharing the same peer.
type envelope struct {
	tag     int
	payload any
}

// gate is a reusable rendezvous barrier shared by Barrier, Broadcast,
// Exchange, and AllReduceAnd: every rank "contributes" into an
// accumulator, the last arrival computes the round's result and wakes
// everyone, and every rank (including the last arrival) reads the same
// result. One gate instance serves arbitrarily many rounds.
type gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int
	acc     any
	result  any
}

func newGate(n int) *gate {
	g := &gate{n: n}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *gate) do(contribute func(acc any) any) any {
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.acc = contribute(g.acc)
	g.arrived++
	if g.arrived == g.n {
		g.result = g.acc
		g.acc = nil
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == gen {
			g.cond.Wait()
		}
	}
	return g.result
}

// Local simulates WorldSize ranks as goroutine-addressable endpoints
// within one process. Rank(i) returns the Transport view bound to rank i.
type Local struct {
	size      int
	inboxes   []chan envelope
	barrier   *gate
	broadcast *gate
	exchange  *gate
	allreduce *gate
	start     time.Time
}

// NewLocal creates a Local transport simulating the given number of
// ranks. inboxSize bounds how many in-flight messages one rank may
// receive before a sender blocks; 0 chooses a sensible default.
func NewLocal(size int, inboxSize int) *Local {
	if inboxSize <= 0 {
		inboxSize = 64
	}
	inboxes := make([]chan envelope, size)
	for i := range inboxes {
		inboxes[i] = make(chan envelope, inboxSize)
	}
	return &Local{
		size:      size,
		inboxes:   inboxes,
		barrier:   newGate(size),
		broadcast: newGate(size),
		exchange:  newGate(size),
		allreduce: newGate(size),
		start:     time.Now(),
	}
}

// Rank returns the Transport view for rank r, 0 <= r < Size().
func (l *Local) Rank(r int) Transport {
	return &localRank{l: l, rank: r}
}

type localRank struct {
	l    *Local
	rank int
}

func (v *localRank) Rank() int { return v.rank }
func (v *localRank) Size() int { return v.l.size }

func (v *localRank) WallTime() float64 {
	return time.Since(v.l.start).Seconds()
}

func (v *localRank) Barrier(ctx context.Context) error {
	v.l.barrier.do(func(acc any) any { return nil })
	return ctx.Err()
}

func (v *localRank) Broadcast(ctx context.Context, val any, root int) (any, error) {
	result := v.l.broadcast.do(func(acc any) any {
		if v.rank == root {
			return val
		}
		return acc
	})
	return result, ctx.Err()
}

func (v *localRank) Exchange(ctx context.Context, send map[int]any, root int) (any, error) {
	result := v.l.exchange.do(func(acc any) any {
		if v.rank == root {
			return send
		}
		return acc
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, _ := result.(map[int]any)
	return m[v.rank], nil
}

func (v *localRank) AllReduceAnd(ctx context.Context, val bool) (bool, error) {
	result := v.l.allreduce.do(func(acc any) any {
		cur := true
		if acc != nil {
			cur = acc.(bool)
		}
		return cur && val
	})
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (v *localRank) Send(ctx context.Context, val any, peer, tag int) error {
	if peer < 0 || peer >= v.l.size {
		return fmt.Errorf("send: peer %d out of range: %w", peer, errkind.Transport)
	}
	select {
	case v.l.inboxes[peer] <- envelope{tag: tag, payload: val}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *localRank) Recv(ctx context.Context, peer, tag int) (any, error) {
	select {
	case env := <-v.l.inboxes[v.rank]:
		if env.tag != tag {
			return nil, fmt.Errorf("recv: tag mismatch, want %d got %d: %w", tag, env.tag, errkind.Transport)
		}
		return env.payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (v *localRank) ISend(ctx context.Context, val any, peer, tag int) Handle {
	h := Handle{result: make(chan handleResult, 1)}
	go func() {
		err := v.Send(ctx, val, peer, tag)
		h.result <- handleResult{err: err}
	}()
	return h
}

func (v *localRank) IRecv(ctx context.Context, peer, tag int) Handle {
	h := Handle{result: make(chan handleResult, 1)}
	go func() {
		val, err := v.Recv(ctx, peer, tag)
		h.result <- handleResult{value: val, err: err}
	}()
	return h
}

func (v *localRank) Wait(ctx context.Context, h Handle) (any, error) {
	select {
	case res := <-h.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitAny blocks until the first of handles completes, returning its
// index and result. It is used by flowcontrol.Run to learn which rank's
// "done" reply landed first, exactly as section 4.5 describes.
func (v *localRank) WaitAny(ctx context.Context, handles []Handle) (int, any, error) {
	cases := make([]reflect.SelectCase, 0, len(handles)+1)
	for _, h := range handles {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(h.result),
		})
	}
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	chosen, recv, _ := reflect.Select(cases)
	if chosen == len(handles) {
		return -1, nil, ctx.Err()
	}
	res := recv.Interface().(handleResult)
	return chosen, res.value, res.err
}
