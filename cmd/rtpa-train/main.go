// Train the strategy tables headless, writing periodic snapshots and a
// final export. Training parameters come from RTPA_* environment
// variables (or a .env file); flags cover the run itself.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/MDS-AnGe/RTPA-Studio"
	"github.com/MDS-AnGe/RTPA-Studio/accel"
	"github.com/MDS-AnGe/RTPA-Studio/ldbtable"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

type runParams struct {
	Seed     int64
	PoolSize int

	Output     string
	JSONExport string
	LevelDBDir string
	Resume     bool

	AccelTimeout time.Duration
	DebugAddr    string
}

func main() {
	var params runParams
	flag.Int64Var(&params.Seed, "seed", 123, "Random seed for the training pool")
	flag.IntVar(&params.PoolSize, "pool_size", 10000, "Number of synthetic states in the training pool")
	flag.StringVar(&params.Output, "output", "strategies.rtpa", "Path for strategy table snapshots")
	flag.StringVar(&params.JSONExport, "json", "", "Optional path for a JSON export of the learned strategies")
	flag.StringVar(&params.LevelDBDir, "leveldb", "", "Keep the strategy table in a LevelDB database at this directory instead of in memory")
	flag.BoolVar(&params.Resume, "resume", false, "Continue from an existing snapshot at -output")
	flag.DurationVar(&params.AccelTimeout, "accel_timeout", time.Minute, "Per-batch accelerator deadline")
	flag.StringVar(&params.DebugAddr, "http", "localhost:4223", "Address for the expvar/pprof debug server")
	flag.Parse()

	rand.Seed(params.Seed)
	go http.ListenAndServe(params.DebugAddr, nil)

	cfg := rtpa.ConfigFromEnv()
	glog.Infof("Config: %d max iterations, batch %d, %d buckets, %d workers, threshold %g",
		cfg.MaxIterations, cfg.BatchSize, cfg.Buckets, cfg.NumWorkers, cfg.ConvergenceThreshold)

	store, persistent := openStore(params)
	pool := rtpa.NewSeededGenerator(params.Seed).States(params.PoolSize)

	var device rtpa.Device
	if cfg.AcceleratorEnabled {
		kernel := accel.NewKernel(cfg.NumWorkers, params.AccelTimeout, func() accel.WalkFunc {
			w := rtpa.NewWalker(store, rtpa.NewAbstractor(cfg.Buckets), cfg.MaxDepth)
			return func(s *poker.State) float64 {
				_, conv := w.Walk(s)
				return conv
			}
		})
		defer kernel.Close()
		device = kernel
	}

	trainer, err := rtpa.NewTrainer(store, pool, device, cfg)
	if err != nil {
		glog.Fatal(err)
	}
	if tbl, ok := store.(*rtpa.Table); ok && params.Output != "" {
		trainer.SetCheckpoint(func(iter int) error {
			glog.Infof("Checkpoint at iteration %d: %d strategies", iter, tbl.Len())
			return tbl.SaveFile(params.Output)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(trainer, cancel)

	if err := trainer.Start(ctx); err != nil {
		glog.Fatal(err)
	}
	trainer.Wait()

	stats := trainer.Stats()
	glog.Infof("Training finished: %d iterations, converged=%v, convergence %.6f, %d strategies in %s",
		stats.Iterations, stats.Converged, stats.Convergence, store.Len(), stats.Elapsed)

	if tbl, ok := store.(*rtpa.Table); ok && params.Output != "" {
		if err := tbl.SaveFile(params.Output); err != nil {
			glog.Fatal(err)
		}
		glog.Infof("Saved strategy table to %s", params.Output)
	}

	if params.JSONExport != "" {
		f, err := os.Create(params.JSONExport)
		if err != nil {
			glog.Fatal(err)
		}
		if err := rtpa.ExportJSON(f, store); err != nil {
			glog.Fatal(err)
		}
		if err := f.Close(); err != nil {
			glog.Fatal(err)
		}
		glog.Infof("Exported strategies to %s", params.JSONExport)
	}

	if persistent != nil {
		if err := persistent.Close(); err != nil {
			glog.Fatal(err)
		}
	}
}

// openStore selects the strategy table backend: a LevelDB table when
// -leveldb is set, otherwise an in-memory table optionally resumed
// from a previous snapshot. The second return value is non-nil when
// the store needs closing.
func openStore(params runParams) (rtpa.StrategyStore, *ldbtable.Table) {
	if params.LevelDBDir != "" {
		tbl, err := ldbtable.New(params.LevelDBDir, &opt.Options{})
		if err != nil {
			glog.Fatal(err)
		}
		glog.Infof("Using LevelDB table at %s (%d strategies)", params.LevelDBDir, tbl.Len())
		return tbl, tbl
	}

	if params.Resume {
		tbl, err := rtpa.LoadTableFile(params.Output)
		if err != nil {
			glog.Fatal(err)
		}
		glog.Infof("Resumed from %s (%d strategies)", params.Output, tbl.Len())
		return tbl, nil
	}
	return rtpa.NewTable(), nil
}

func watchSignals(trainer *rtpa.Trainer, cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	glog.Info("Interrupted, stopping after the current iteration")
	trainer.Stop()
	cancel()
}
