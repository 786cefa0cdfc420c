// Package accel implements the batch-compute device the trainer
// dispatches large batches to: a Kernel of resident walk workers fed
// over channels, and a Pipeline for asynchronous submission on top of
// it.
package accel

import (
	"context"
	"expvar"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/MDS-AnGe/RTPA-Studio/internal/f64"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

var (
	jobsDone    = expvar.NewInt("accel/jobs")
	batchesDone = expvar.NewInt("accel/batches")
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("accel: kernel closed")

// WalkFunc runs one full game-tree walk from a state, applying its
// table updates as a side effect, and returns the walk's convergence
// contribution.
type WalkFunc func(*poker.State) float64

type job struct {
	state *poker.State
	out   chan<- float64
}

// Kernel executes batches across resident worker goroutines. Each
// worker owns a private walk closure from the factory, so workers
// never share mutable walk state; the strategy store behind the
// closures carries the concurrency contract.
type Kernel struct {
	timeout time.Duration
	jobs    chan job
	quit    chan struct{}
	wg      sync.WaitGroup
	closed  int32
}

// NewKernel starts workers resident goroutines, each walking with a
// closure obtained from factory. workers < 1 means one per CPU.
// timeout bounds every TrainBatch call on top of the caller's context;
// zero leaves only the context bound.
func NewKernel(workers int, timeout time.Duration, factory func() WalkFunc) *Kernel {
	if factory == nil {
		panic("accel: nil walk factory")
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	k := &Kernel{
		timeout: timeout,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		k.wg.Add(1)
		go k.worker(factory())
	}
	return k
}

func (k *Kernel) worker(walk WalkFunc) {
	defer k.wg.Done()
	for {
		select {
		case <-k.quit:
			return
		case j := <-k.jobs:
			j.out <- walk(j.state)
			jobsDone.Add(1)
		}
	}
}

// TrainBatch walks every state in the batch and returns the mean
// convergence value. An empty batch contributes zero convergence with
// no error. On cancellation or timeout the batch is abandoned partway
// and the error returned; updates from walks that already completed
// stay applied.
func (k *Kernel) TrainBatch(ctx context.Context, states []*poker.State) (float64, error) {
	if atomic.LoadInt32(&k.closed) != 0 {
		return 0, ErrClosed
	}
	if len(states) == 0 {
		return 0, nil
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	// Buffered to the full batch so workers can always deliver, even
	// when this call has already given up.
	out := make(chan float64, len(states))
	for i, s := range states {
		select {
		case k.jobs <- job{state: s, out: out}:
		case <-ctx.Done():
			return 0, errors.Wrapf(ctx.Err(), "submitting state %d/%d", i, len(states))
		case <-k.quit:
			return 0, ErrClosed
		}
	}

	values := make([]float64, 0, len(states))
	for len(values) < len(states) {
		select {
		case v := <-out:
			values = append(values, v)
		case <-ctx.Done():
			return 0, errors.Wrapf(ctx.Err(), "collecting results (%d/%d done)", len(values), len(states))
		case <-k.quit:
			return 0, ErrClosed
		}
	}

	batchesDone.Add(1)
	return f64.Sum(values) / float64(len(values)), nil
}

// Close stops the workers and waits for them to exit. Idempotent.
func (k *Kernel) Close() error {
	if !atomic.CompareAndSwapInt32(&k.closed, 0, 1) {
		return nil
	}
	close(k.quit)
	k.wg.Wait()
	return nil
}
