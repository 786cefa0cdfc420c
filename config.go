package rtpa

import (
	"os"
	"runtime"
	"strconv"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/MDS-AnGe/RTPA-Studio/equity"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultMaxIterations        = 10000
	DefaultConvergenceThreshold = 0.01
	DefaultBuckets              = 64
	DefaultBatchSize            = 100
	DefaultWindowSize           = 1000
	DefaultCheckEvery           = 1000
	DefaultMaxDepth             = 64
	DefaultAcceleratorBatch     = 1000
	DefaultAcceleratorMemory    = 0.8
)

// Config collects every tunable of the solver. The zero value is not
// runnable; start from DefaultConfig or ConfigFromEnv and override.
type Config struct {
	// MaxIterations stops training after this many batches when the
	// convergence threshold is never reached.
	MaxIterations int
	// ConvergenceThreshold ends training once the windowed mean of the
	// per-batch convergence metric falls below it. The metric trends
	// toward zero as strategies stop accumulating regret.
	ConvergenceThreshold float64
	// NumWorkers is the size of the CPU worker pool. Requesting zero
	// workers is refused at construction rather than defaulted, since
	// it is more likely a bug than a choice.
	NumWorkers int
	// Buckets is the number of hand-strength buckets in the card
	// abstraction.
	Buckets int
	// BatchSize is the number of states sampled per iteration.
	BatchSize int
	// WindowSize bounds the sliding window of per-batch convergence
	// values.
	WindowSize int
	// CheckEvery is the iteration interval between convergence checks.
	CheckEvery int
	// CheckpointEvery is the iteration interval between checkpoint
	// hook invocations; zero disables checkpointing.
	CheckpointEvery int
	// MaxDepth caps walk recursion as a guard against an abstraction
	// bug reintroducing a cycle.
	MaxDepth int

	// MCSamples is the trial count for equity estimates.
	MCSamples int
	// EquityCacheSize bounds the equity cache.
	EquityCacheSize int

	AcceleratorEnabled bool
	// AcceleratorBatchThreshold is the minimum batch size worth
	// shipping to an accelerator; smaller batches stay on the CPU.
	AcceleratorBatchThreshold int
	// AcceleratorMemoryFraction is the share of device memory the
	// accelerator may claim, in [0, 1].
	AcceleratorMemoryFraction float64
}

// DefaultConfig returns the standard configuration: every knob at its
// default and one worker per CPU.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        DefaultMaxIterations,
		ConvergenceThreshold: DefaultConvergenceThreshold,
		NumWorkers:           runtime.NumCPU(),
		Buckets:              DefaultBuckets,
		BatchSize:            DefaultBatchSize,
		WindowSize:           DefaultWindowSize,
		CheckEvery:           DefaultCheckEvery,
		MaxDepth:             DefaultMaxDepth,
		MCSamples:            equity.DefaultSamples,
		EquityCacheSize:      equity.DefaultCacheSize,

		AcceleratorEnabled:        true,
		AcceleratorBatchThreshold: DefaultAcceleratorBatch,
		AcceleratorMemoryFraction: DefaultAcceleratorMemory,
	}
}

// ConfigFromEnv builds a Config from RTPA_* environment variables on
// top of the defaults, loading a .env file first when one is present.
// Malformed values are logged and ignored; nothing here fails.
func ConfigFromEnv() Config {
	_ = godotenv.Load() // missing .env is fine

	cfg := DefaultConfig()
	cfg.MaxIterations = envInt("RTPA_MAX_ITERATIONS", cfg.MaxIterations)
	cfg.ConvergenceThreshold = envFloat("RTPA_CONVERGENCE_THRESHOLD", cfg.ConvergenceThreshold)
	cfg.NumWorkers = envInt("RTPA_CPU_THREADS", cfg.NumWorkers)
	cfg.Buckets = envInt("RTPA_ABSTRACTION_BUCKETS", cfg.Buckets)
	cfg.BatchSize = envInt("RTPA_BATCH_SIZE", cfg.BatchSize)
	cfg.CheckpointEvery = envInt("RTPA_CHECKPOINT_EVERY", cfg.CheckpointEvery)
	cfg.MCSamples = envInt("RTPA_MC_SAMPLES", cfg.MCSamples)
	cfg.AcceleratorEnabled = envBool("RTPA_ACCELERATOR_ENABLED", cfg.AcceleratorEnabled)
	cfg.AcceleratorBatchThreshold = envInt("RTPA_ACCELERATOR_BATCH", cfg.AcceleratorBatchThreshold)
	cfg.AcceleratorMemoryFraction = envFloat("RTPA_ACCELERATOR_MEMORY", cfg.AcceleratorMemoryFraction)
	return cfg
}

// Validate reports whether the configuration is runnable at all. A
// worker count below one is the single unrecoverable setting; every
// other field falls back to its default when out of range.
func (c Config) Validate() error {
	if c.NumWorkers < 1 {
		return errors.Errorf("config: %d worker threads requested, need at least 1", c.NumWorkers)
	}
	return nil
}

// normalized returns a copy with out-of-range fields replaced by their
// defaults. NumWorkers is left alone: an explicit zero is refused by
// Validate instead of silently repaired.
func (c Config) normalized() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ConvergenceThreshold <= 0 {
		c.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if c.Buckets <= 0 {
		c.Buckets = DefaultBuckets
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.CheckEvery <= 0 {
		c.CheckEvery = DefaultCheckEvery
	}
	if c.CheckpointEvery < 0 {
		c.CheckpointEvery = 0
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MCSamples <= 0 {
		c.MCSamples = equity.DefaultSamples
	}
	if c.EquityCacheSize <= 0 {
		c.EquityCacheSize = equity.DefaultCacheSize
	}
	if c.AcceleratorBatchThreshold <= 0 {
		c.AcceleratorBatchThreshold = DefaultAcceleratorBatch
	}
	if c.AcceleratorMemoryFraction <= 0 || c.AcceleratorMemoryFraction > 1 {
		c.AcceleratorMemoryFraction = DefaultAcceleratorMemory
	}
	return c
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		glog.Warningf("Ignoring %s=%q: %v", name, v, err)
		return fallback
	}
	return n
}

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		glog.Warningf("Ignoring %s=%q: %v", name, v, err)
		return fallback
	}
	return f
}

func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		glog.Warningf("Ignoring %s=%q: %v", name, v, err)
		return fallback
	}
	return b
}
