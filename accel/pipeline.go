package accel

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

const defaultPipelineBatch = 128

// Result is the outcome of one submitted state: the convergence value
// of the batch it rode in, or the error that failed that batch.
type Result struct {
	Convergence float64
	Err         error
}

type request struct {
	state *poker.State
	out   chan Result
}

// Pipeline batches asynchronous single-state submissions for a
// Kernel. A dispatcher goroutine groups whatever is waiting, up to
// batchSize states, into one kernel call and fans the result back out
// to every submitter.
type Pipeline struct {
	kernel    *Kernel
	batchSize int
	requests  chan request

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPipeline starts the dispatcher over k. batchSize < 1 falls back
// to a small default; the kernel is not closed when the pipeline is.
func NewPipeline(k *Kernel, batchSize int) *Pipeline {
	if batchSize < 1 {
		batchSize = defaultPipelineBatch
	}

	p := &Pipeline{
		kernel:    k,
		batchSize: batchSize,
		requests:  make(chan request, batchSize),
	}
	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Submit queues one state for the next batch. The returned channel
// delivers exactly one Result.
func (p *Pipeline) Submit(s *poker.State) <-chan Result {
	out := make(chan Result, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		out <- Result{Err: ErrClosed}
		return out
	}
	p.requests <- request{state: s, out: out}
	p.mu.Unlock()
	return out
}

// Close stops accepting submissions, drains everything already queued
// through the kernel, and waits for the dispatcher to exit.
// Idempotent.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.requests)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pipeline) dispatch() {
	defer p.wg.Done()

	pending := make([]request, 0, p.batchSize)
	for {
		req, ok := <-p.requests
		if !ok {
			return
		}
		pending = append(pending, req)

	gather:
		for len(pending) < p.batchSize {
			select {
			case more, ok := <-p.requests:
				if !ok {
					break gather
				}
				pending = append(pending, more)
			default:
				break gather
			}
		}

		p.flush(pending)
		pending = pending[:0]
	}
}

// flush runs one batch and delivers its result to every submitter in
// it.
func (p *Pipeline) flush(pending []request) {
	states := make([]*poker.State, len(pending))
	for i, req := range pending {
		states[i] = req.state
	}

	glog.V(2).Infof("Dispatching pipeline batch of %d states", len(states))
	conv, err := p.kernel.TrainBatch(context.Background(), states)
	for _, req := range pending {
		req.out <- Result{Convergence: conv, Err: err}
	}
}
