package rtpa

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

type fakeDevice struct {
	calls int64
	conv  float64
	err   error
}

func (d *fakeDevice) TrainBatch(ctx context.Context, states []*poker.State) (float64, error) {
	atomic.AddInt64(&d.calls, 1)
	if d.err != nil {
		return 0, d.err
	}
	return d.conv, nil
}

func (d *fakeDevice) Close() error { return nil }

func testTrainerConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxIterations = 200
	cfg.BatchSize = 8
	cfg.WindowSize = 50
	cfg.CheckEvery = 50
	cfg.ConvergenceThreshold = 0.5
	cfg.MaxDepth = 4
	cfg.NumWorkers = 4
	cfg.AcceleratorEnabled = false
	return cfg
}

func testPool(t *testing.T, n int) []*poker.State {
	t.Helper()
	return NewSeededGenerator(7).States(n)
}

func TestNewTrainerRefusesZeroWorkers(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.NumWorkers = 0
	if _, err := NewTrainer(NewTable(), nil, nil, cfg); err == nil {
		t.Fatal("NewTrainer accepted zero workers")
	}
}

func TestStartWhileRunningFails(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 1 << 20
	cfg.CheckEvery = 1 << 20

	tr, err := NewTrainer(NewTable(), testPool(t, 20), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tr.Start(context.Background()); err != ErrAlreadyTraining {
		t.Errorf("second Start: expected ErrAlreadyTraining, got %v", err)
	}

	tr.Stop()
	tr.Wait()

	// The trainer is reusable once the session ends.
	if err := tr.Start(context.Background()); err != nil {
		t.Errorf("restart after Wait: %v", err)
	}
	tr.Stop()
	tr.Wait()
}

func TestTrainerRunsToConvergenceOrMax(t *testing.T) {
	tbl := NewTable()
	tr, err := NewTrainer(tbl, testPool(t, 40), nil, testTrainerConfig())
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	stats := tr.Stats()
	if stats.Running {
		t.Error("stats report Running after Wait returned")
	}
	if stats.Iterations < 1 || stats.Iterations > stats.MaxIterations {
		t.Errorf("iterations = %d, want 1..%d", stats.Iterations, stats.MaxIterations)
	}
	if !stats.Converged && stats.Iterations != stats.MaxIterations {
		t.Errorf("session ended at %d iterations without converging", stats.Iterations)
	}
	if stats.Convergence < 0 || stats.Convergence > 1 {
		t.Errorf("convergence = %v, want within [0, 1]", stats.Convergence)
	}
	if stats.Elapsed <= 0 {
		t.Errorf("elapsed = %v, want > 0", stats.Elapsed)
	}
	if tbl.Len() == 0 {
		t.Error("no strategies were learned")
	}
}

func TestTrainerStop(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 1 << 20
	cfg.CheckEvery = 1 << 20

	tr, err := NewTrainer(NewTable(), testPool(t, 20), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	tr.Stop() // no-op when idle
	tr.Wait() // no-op when never started

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for tr.Stats().Iterations == 0 {
		if time.Now().After(deadline) {
			t.Fatal("trainer made no progress")
		}
		time.Sleep(time.Millisecond)
	}
	if stats := tr.Stats(); !stats.Running {
		t.Error("stats report idle while the session runs")
	}

	tr.Stop()
	tr.Stop() // idempotent
	tr.Wait()

	stats := tr.Stats()
	if stats.Running {
		t.Error("stats report Running after stop")
	}
	if stats.Converged {
		t.Error("externally stopped session reported as converged")
	}
	if stats.Iterations >= stats.MaxIterations {
		t.Errorf("stop did not end the session early: %d iterations", stats.Iterations)
	}
}

func TestTrainerContextCancel(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 1 << 20
	cfg.CheckEvery = 1 << 20

	tr, err := NewTrainer(NewTable(), testPool(t, 20), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	tr.Wait()

	if stats := tr.Stats(); stats.Iterations >= stats.MaxIterations {
		t.Errorf("cancel did not end the session early: %d iterations", stats.Iterations)
	}
}

func TestTrainerDeviceDispatch(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 100
	cfg.CheckEvery = 10
	cfg.AcceleratorEnabled = true
	cfg.AcceleratorBatchThreshold = 1

	dev := &fakeDevice{conv: 0}
	tbl := NewTable()
	tr, err := NewTrainer(tbl, testPool(t, 20), dev, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	// Every batch cleared the threshold, the device reported zero
	// convergence each time, so the first check ends the session.
	stats := tr.Stats()
	if !stats.Converged {
		t.Error("session did not converge on device-reported values")
	}
	if stats.Iterations != cfg.CheckEvery {
		t.Errorf("iterations = %d, want %d", stats.Iterations, cfg.CheckEvery)
	}
	if got := atomic.LoadInt64(&dev.calls); got != int64(stats.Iterations) {
		t.Errorf("device calls = %d, want %d", got, stats.Iterations)
	}
	if tbl.Len() != 0 {
		t.Errorf("CPU path ran despite device handling every batch: %d entries", tbl.Len())
	}
}

func TestTrainerDeviceFailureFallsBackToCPU(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 20
	cfg.CheckEvery = 20
	cfg.ConvergenceThreshold = 1e-9
	cfg.AcceleratorEnabled = true
	cfg.AcceleratorBatchThreshold = 1

	dev := &fakeDevice{err: errors.New("accelerator offline")}
	tbl := NewTable()
	tr, err := NewTrainer(tbl, testPool(t, 20), dev, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	stats := tr.Stats()
	if got := atomic.LoadInt64(&dev.calls); got != int64(stats.Iterations) {
		t.Errorf("device calls = %d, want one per iteration (%d)", got, stats.Iterations)
	}
	if tbl.Len() == 0 {
		t.Error("CPU fallback did not learn any strategies")
	}
}

func TestTrainerDisabledDeviceIsNeverCalled(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 10
	cfg.CheckEvery = 10
	cfg.AcceleratorEnabled = false
	cfg.AcceleratorBatchThreshold = 1

	dev := &fakeDevice{conv: 0}
	tr, err := NewTrainer(NewTable(), testPool(t, 10), dev, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	if got := atomic.LoadInt64(&dev.calls); got != 0 {
		t.Errorf("disabled device was called %d times", got)
	}
}

func TestTrainerSkipsMalformedStates(t *testing.T) {
	pool := testPool(t, 4)
	pool = append(pool, &poker.State{}) // no hole cards, no actions

	cfg := testTrainerConfig()
	cfg.MaxIterations = 10
	cfg.CheckEvery = 10
	cfg.ConvergenceThreshold = 1e-9
	cfg.BatchSize = len(pool)

	tbl := NewTable()
	tr, err := NewTrainer(tbl, pool, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	stats := tr.Stats()
	if stats.Iterations != cfg.MaxIterations {
		t.Errorf("iterations = %d, want %d", stats.Iterations, cfg.MaxIterations)
	}
	if tbl.Len() == 0 {
		t.Error("valid states in a partially malformed batch were not trained")
	}
}

func TestTrainerCheckpointCadence(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MaxIterations = 20
	cfg.CheckEvery = 20
	cfg.CheckpointEvery = 5
	cfg.ConvergenceThreshold = 1e-9

	tr, err := NewTrainer(NewTable(), testPool(t, 10), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var at []int
	tr.SetCheckpoint(func(iteration int) error {
		mu.Lock()
		at = append(at, iteration)
		mu.Unlock()
		if iteration == 10 {
			return errors.New("disk full") // must not end the session
		}
		return nil
	})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	want := []int{5, 10, 15, 20}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(at, want) {
		t.Errorf("checkpoints at %v, want %v", at, want)
	}
}

func TestTrainerEmptyBatchesContributeZero(t *testing.T) {
	pool := []*poker.State{{}, {}} // nothing walkable

	cfg := testTrainerConfig()
	cfg.MaxIterations = 100
	cfg.CheckEvery = 10
	cfg.BatchSize = len(pool)

	tbl := NewTable()
	tr, err := NewTrainer(tbl, pool, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Wait()

	// Zero contribution per batch means the windowed mean sits at
	// zero, so the first check ends the session rather than hanging.
	stats := tr.Stats()
	if !stats.Converged {
		t.Error("all-empty batches should drive the metric to zero")
	}
	if stats.Iterations != cfg.CheckEvery {
		t.Errorf("iterations = %d, want %d", stats.Iterations, cfg.CheckEvery)
	}
	if tbl.Len() != 0 {
		t.Errorf("strategies learned from empty batches: %d entries", tbl.Len())
	}
}
