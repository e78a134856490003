// Package telemetry implements the step driver's phase timing and the
// end-of-run performance report spec.md §4.8 and §12 describe: a
// wall-clock timer per pipeline phase, gathered to rank 0 and reported
// as distribution statistics across ranks via gonum's stat package,
// the same numeric library the rest of the corpus reaches for tensor
// and statistics work.
package telemetry

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sph/comm"
)

// Phase indexes the fixed set of step-driver phases timed every step
// (spec.md §4.8). Order here is the order the driver runs them in.
const (
	PhaseMarshal = iota
	PhaseGenerateVirtual
	PhaseBorderExchange
	PhaseTimeStep
	PhaseUnmarshal
	PhaseMigrate
	PhaseCheckpoint
	numPhases
)

var phaseNames = [numPhases]string{
	PhaseMarshal:         "marshal",
	PhaseGenerateVirtual: "generate_virtual",
	PhaseBorderExchange:  "border_exchange",
	PhaseTimeStep:        "time_step",
	PhaseUnmarshal:       "unmarshal",
	PhaseMigrate:         "migrate",
	PhaseCheckpoint:      "checkpoint",
}

const reportTag = 40

// Timers accumulates wall-clock time spent in each phase across every
// step of a run, on one rank.
type Timers struct {
	totals [numPhases]time.Duration
}

// NewTimers builds an empty set of phase timers.
func NewTimers() *Timers {
	return &Timers{}
}

// Time runs fn, adding its wall-clock duration to phase's running
// total, and returns whatever error fn returned.
func (t *Timers) Time(phase int, fn func() error) error {
	start := time.Now()
	err := fn()
	t.totals[phase] += time.Since(start)
	return err
}

func (t *Timers) seconds() [numPhases]float64 {
	var out [numPhases]float64
	for i, d := range t.totals {
		out[i] = d.Seconds()
	}
	return out
}

// Report gathers every rank's phase totals to rank 0 and logs, for
// each phase, the mean and the 50th/90th percentile across ranks —
// the metric that matters for a barrier-synchronized pipeline is how
// long the slowest rank took, not any single rank's total.
func Report(t *Timers, cl comm.Collective, logger *slog.Logger) error {
	mine := t.seconds()

	if cl.Rank() != 0 {
		return cl.Send(0, reportTag, encodeSeconds(mine))
	}

	perPhase := make([][]float64, numPhases)
	for p := range perPhase {
		perPhase[p] = append(perPhase[p], mine[p])
	}
	for r := 1; r < cl.Size(); r++ {
		buf, err := cl.Recv(r, reportTag)
		if err != nil {
			return fmt.Errorf("telemetry: rank 0: recv phase totals from rank %d: %w", r, err)
		}
		secs := decodeSeconds(buf)
		for p := range perPhase {
			perPhase[p] = append(perPhase[p], secs[p])
		}
	}

	for p := 0; p < numPhases; p++ {
		values := append([]float64(nil), perPhase[p]...)
		sort.Float64s(values)
		mean := stat.Mean(values, nil)
		p50 := stat.Quantile(0.5, stat.Empirical, values, nil)
		p90 := stat.Quantile(0.9, stat.Empirical, values, nil)
		logger.Info("phase timing",
			"phase", phaseNames[p],
			"mean_sec", round(mean),
			"p50_sec", round(p50),
			"p90_sec", round(p90),
			"ranks", len(values),
		)
	}
	return nil
}

func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func encodeSeconds(secs [numPhases]float64) []byte {
	buf := make([]byte, numPhases*8)
	for i, s := range secs {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(s))
	}
	return buf
}

func decodeSeconds(buf []byte) [numPhases]float64 {
	var out [numPhases]float64
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

// MeanAccelMagnitude reports the mean combined-acceleration magnitude
// over a set of field particles, one scalar per step the driver can log
// at debug level to spot a run going numerically unstable. ax/ay hold
// one entry per particle.
func MeanAccelMagnitude(ax, ay []float64) float64 {
	if len(ax) == 0 {
		return 0
	}
	mags := make([]float64, len(ax))
	for i := range ax {
		mags[i] = math.Hypot(ax[i], ay[i])
	}
	return floats.Sum(mags) / float64(len(mags))
}

// WorkerCount reports how many OS threads the intra-process stencils
// may use: SPH_WORKERS overrides GOMAXPROCS when set, matching the
// original's thread-count reporting at exit (spec.md §12).
func WorkerCount() int {
	if v := os.Getenv("SPH_WORKERS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return runtime.GOMAXPROCS(0)
}
