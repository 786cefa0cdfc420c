package rtpa

import (
	"context"
	"expvar"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/MDS-AnGe/RTPA-Studio/internal/f64"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// ErrAlreadyTraining is returned by Start while a session is active.
// Sessions are never queued; the caller decides whether to retry.
var ErrAlreadyTraining = errors.New("rtpa: training already in progress")

var (
	iterationsRun        = expvar.NewInt("trainer/iterations")
	acceleratorBatches   = expvar.NewInt("trainer/accelerator_batches")
	acceleratorFallbacks = expvar.NewInt("trainer/accelerator_fallbacks")
	statesSkipped        = expvar.NewInt("trainer/states_skipped")
)

// TrainingStats is a point-in-time snapshot of training progress.
type TrainingStats struct {
	Iterations    int
	MaxIterations int
	Running       bool
	Converged     bool
	// Convergence is the windowed mean of the per-batch metric; it
	// trends toward zero as the tables stop accumulating regret.
	Convergence float64
	Elapsed     time.Duration
	// Remaining extrapolates the per-iteration pace to MaxIterations.
	Remaining time.Duration
}

// Trainer drives repeated sampled batches of game-tree walks against a
// shared StrategyStore, tracking a windowed convergence metric. At most
// one session runs at a time.
type Trainer struct {
	store      StrategyStore
	abs        *Abstractor
	pool       []*poker.State
	device     Device
	cfg        Config
	checkpoint func(iteration int) error

	running int32
	stop    int32

	mu         sync.Mutex
	iterations int
	converged  bool
	window     []float64
	windowIdx  int
	started    time.Time
	elapsed    time.Duration
	done       chan struct{}
}

// NewTrainer creates a Trainer over the given store and state pool.
// device may be nil for CPU-only training. The config is validated
// (zero workers is refused) and out-of-range fields fall back to their
// defaults.
func NewTrainer(store StrategyStore, pool []*poker.State, device Device, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	return &Trainer{
		store:  store,
		abs:    NewAbstractor(cfg.Buckets),
		pool:   pool,
		device: device,
		cfg:    cfg,
	}, nil
}

// SetCheckpoint installs fn, invoked from the training loop every
// CheckpointEvery iterations with the current iteration number. A
// failing checkpoint is logged and training continues. Set before
// Start; it is not safe to change while a session runs.
func (t *Trainer) SetCheckpoint(fn func(iteration int) error) {
	t.checkpoint = fn
}

// Start launches a training session in the background, returning
// ErrAlreadyTraining if one is already active. Use Wait to block until
// the session ends and Stats to observe progress.
func (t *Trainer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.running, 0, 1) {
		return ErrAlreadyTraining
	}
	atomic.StoreInt32(&t.stop, 0)

	t.mu.Lock()
	t.iterations = 0
	t.converged = false
	t.window = t.window[:0]
	t.windowIdx = 0
	t.started = time.Now()
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.run(ctx)
	return nil
}

// Stop requests the current session end at the next iteration
// boundary; in-flight walks run to completion. It is idempotent and
// safe to call when nothing is running.
func (t *Trainer) Stop() {
	atomic.StoreInt32(&t.stop, 1)
}

// Wait blocks until the current session ends. It returns immediately
// when no session is running.
func (t *Trainer) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stats returns a snapshot of training progress. Safe to call from any
// goroutine at any time, including while training runs.
func (t *Trainer) Stats() TrainingStats {
	running := atomic.LoadInt32(&t.running) == 1

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := TrainingStats{
		Iterations:    t.iterations,
		MaxIterations: t.cfg.MaxIterations,
		Running:       running,
		Converged:     t.converged,
		Convergence:   t.windowMeanLocked(),
		Elapsed:       t.elapsed,
	}
	if running {
		stats.Elapsed = time.Since(t.started)
		if t.iterations > 0 {
			perIter := stats.Elapsed / time.Duration(t.iterations)
			stats.Remaining = time.Duration(t.cfg.MaxIterations-t.iterations) * perIter
		}
	}
	return stats
}

func (t *Trainer) run(ctx context.Context) {
	defer func() {
		t.mu.Lock()
		t.elapsed = time.Since(t.started)
		done := t.done
		t.mu.Unlock()
		atomic.StoreInt32(&t.running, 0)
		close(done)
	}()

	glog.Infof("Training started: %d states, batch %d, max %d iterations, %d workers",
		len(t.pool), t.cfg.BatchSize, t.cfg.MaxIterations, t.cfg.NumWorkers)

	rng := rand.New(rand.NewSource(rand.Int63()))
	for iter := 1; iter <= t.cfg.MaxIterations; iter++ {
		if atomic.LoadInt32(&t.stop) != 0 {
			glog.Infof("Training stopped externally after %d iterations", iter-1)
			return
		}
		if ctx.Err() != nil {
			glog.Infof("Training context canceled after %d iterations", iter-1)
			return
		}

		conv := t.trainBatch(ctx, t.sampleBatch(rng))

		t.mu.Lock()
		t.iterations = iter
		t.pushWindowLocked(conv)
		t.mu.Unlock()
		iterationsRun.Add(1)

		if t.cfg.CheckpointEvery > 0 && t.checkpoint != nil && iter%t.cfg.CheckpointEvery == 0 {
			if err := t.checkpoint(iter); err != nil {
				glog.Warningf("Checkpoint at iteration %d failed: %v", iter, err)
			}
		}

		if iter%t.cfg.CheckEvery == 0 {
			t.mu.Lock()
			mean := t.windowMeanLocked()
			t.mu.Unlock()

			glog.V(1).Infof("Iteration %d: windowed convergence %.6f", iter, mean)
			if mean < t.cfg.ConvergenceThreshold {
				t.mu.Lock()
				t.converged = true
				t.mu.Unlock()
				glog.Infof("Converged after %d iterations (%.6f < %.6f)",
					iter, mean, t.cfg.ConvergenceThreshold)
				return
			}
		}
	}

	glog.Infof("Training reached max iterations (%d)", t.cfg.MaxIterations)
}

// sampleBatch draws up to BatchSize states uniformly without
// replacement.
func (t *Trainer) sampleBatch(rng *rand.Rand) []*poker.State {
	if t.cfg.BatchSize >= len(t.pool) {
		batch := make([]*poker.State, len(t.pool))
		copy(batch, t.pool)
		return batch
	}

	batch := make([]*poker.State, t.cfg.BatchSize)
	for i, j := range rng.Perm(len(t.pool))[:t.cfg.BatchSize] {
		batch[i] = t.pool[j]
	}
	return batch
}

// trainBatch routes one batch to the accelerator when it is large
// enough and a device is attached, and otherwise across the CPU
// workers. A device failure degrades to the CPU path for that batch;
// it never aborts training.
func (t *Trainer) trainBatch(ctx context.Context, batch []*poker.State) float64 {
	batch = t.dropMalformed(batch)
	if len(batch) == 0 {
		return 0 // nothing left to learn from
	}

	if t.device != nil && t.cfg.AcceleratorEnabled && len(batch) >= t.cfg.AcceleratorBatchThreshold {
		conv, err := t.device.TrainBatch(ctx, batch)
		if err == nil {
			acceleratorBatches.Add(1)
			return conv
		}
		acceleratorFallbacks.Add(1)
		glog.Warningf("Accelerator batch failed, falling back to CPU: %v", err)
	}

	return t.trainBatchCPU(batch)
}

// dropMalformed filters states that cannot be walked. A bad state is
// skipped with a counter bump, never an error.
func (t *Trainer) dropMalformed(batch []*poker.State) []*poker.State {
	valid := batch[:0]
	for _, s := range batch {
		if s == nil || len(s.Actions) == 0 || s.Validate() != nil {
			statesSkipped.Add(1)
			continue
		}
		valid = append(valid, s)
	}
	return valid
}

// trainBatchCPU partitions the batch across the worker pool. Each
// worker owns a private Walker over the shared store and reduces its
// chunk to a mean convergence value; the batch value is the mean of
// chunk means.
func (t *Trainer) trainBatchCPU(batch []*poker.State) float64 {
	workers := t.cfg.NumWorkers
	if workers > len(batch) {
		workers = len(batch)
	}
	chunkSize := (len(batch) + workers - 1) / workers
	nChunks := (len(batch) + chunkSize - 1) / chunkSize

	chunkMeans := make([]float64, nChunks)
	var wg sync.WaitGroup
	c := 0
	for lo := 0; lo < len(batch); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(batch) {
			hi = len(batch)
		}

		wg.Add(1)
		go func(c int, chunk []*poker.State) {
			defer wg.Done()
			w := NewWalker(t.store, t.abs, t.cfg.MaxDepth)
			sum := 0.0
			for _, s := range chunk {
				_, conv := w.Walk(s)
				sum += conv
			}
			chunkMeans[c] = sum / float64(len(chunk))
		}(c, batch[lo:hi])
		c++
	}
	wg.Wait()

	return f64.Sum(chunkMeans) / float64(len(chunkMeans))
}

// pushWindowLocked appends a per-batch convergence value, overwriting
// the oldest once the window is full. Callers hold t.mu.
func (t *Trainer) pushWindowLocked(v float64) {
	if len(t.window) < t.cfg.WindowSize {
		t.window = append(t.window, v)
		return
	}
	t.window[t.windowIdx] = v
	t.windowIdx = (t.windowIdx + 1) % t.cfg.WindowSize
}

// windowMeanLocked is the mean of the convergence window, or 1 when
// nothing has been recorded yet: no evidence is not convergence.
// Callers hold t.mu.
func (t *Trainer) windowMeanLocked() float64 {
	if len(t.window) == 0 {
		return 1
	}
	return f64.Sum(t.window) / float64(len(t.window))
}
