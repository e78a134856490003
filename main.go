// Command sph runs the 2D weakly-compressible dam-break solver:
// a fixed collective of simulated subdomains (goroutines communicating
// over the comm package's in-process collective, standing in for MPI
// ranks) steps the SPH pipeline in lockstep and periodically writes
// checkpoints to disk.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pthm-cable/sph/checkpoint"
	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/store"
	"github.com/pthm-cable/sph/telemetry"
)

var (
	maxIteration   = flag.Int("i", 0, "max_iteration override (0 = use config)")
	checkpointFreq = flag.Int("c", 0, "checkpoint_frequency override (0 = use config)")
	restartStep    = flag.Int("r", -1, "min_iteration; enables restart mode, loading from a checkpoint instead of re-initializing")
	ranks          = flag.Int("n", 1, "number of subdomains (simulated ranks) in the collective")
	configPath     = flag.String("config", "", "path to a YAML file overriding the embedded defaults")
	verbose        = flag.Bool("v", false, "enable debug-level logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig()
	if err != nil {
		logger.Warn("loading configuration; using embedded defaults", "error", err)
		cfg = config.Default()
	}
	if *maxIteration > 0 {
		cfg.Run.MaxIteration = *maxIteration
	}
	if *checkpointFreq > 0 {
		cfg.Checkpoint.Frequency = *checkpointFreq
	}
	restart := *restartStep >= 0
	if restart {
		cfg.Run.MinIteration = *restartStep
	}

	logger.Info("starting run",
		"ranks", *ranks,
		"max_iteration", cfg.Run.MaxIteration,
		"checkpoint_frequency", cfg.Checkpoint.Frequency,
		"restart", restart,
	)

	cluster := comm.NewCluster(*ranks)
	ckptWriter := checkpoint.New(cfg.Checkpoint.Dir)

	var wg sync.WaitGroup
	errs := make([]error, *ranks)
	for rank := 0; rank < *ranks; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = runRank(cfg, logger, cluster.Member(rank), ckptWriter, restart)
		}(rank)
	}
	wg.Wait()

	for _, runErr := range errs {
		if runErr != nil {
			logger.Error("run failed", "error", runErr)
			os.Exit(1)
		}
	}
	logger.Info("run complete", "workers", telemetry.WorkerCount())
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", *configPath, err)
	}
	return config.Load(data)
}

func runRank(cfg *config.Config, logger *slog.Logger, cl comm.Collective, ckpt *checkpoint.Writer, restart bool) error {
	rankLogger := logger.With("rank", cl.Rank())
	ctx := sim.NewContext(cfg, rankLogger, cl.Rank(), cl.Size())
	s := store.New()
	s.Init()
	defer s.Finalize()

	if restart {
		if err := sim.Restore(s, ckpt, cfg.Run.MinIteration, cfg.Checkpoint.Frequency, rankLogger); err != nil {
			return err
		}
	} else {
		for _, rec := range sim.InitializeColumn(cfg, cl.Rank(), cl.Size()) {
			s.Insert(rec)
		}
	}

	driver := sim.NewDriver(ctx, s, cl, ckpt, cfg.Checkpoint.Frequency)
	for timestep := cfg.Run.MinIteration; timestep < cfg.Run.MaxIteration; timestep++ {
		if err := driver.Step(timestep); err != nil {
			return fmt.Errorf("rank %d: step %d: %w", cl.Rank(), timestep, err)
		}
	}

	return telemetry.Report(driver.Timers, cl, rankLogger)
}
