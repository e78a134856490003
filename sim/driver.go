package sim

import (
	"log/slog"

	"github.com/pthm-cable/sph/checkpoint"
	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/store"
	"github.com/pthm-cable/sph/telemetry"
)

// Driver owns the per-rank Context plus the collaborators the step
// pipeline talks to: the owned-particle store, the collective, the
// checkpoint writer and the phase timers (spec.md §4.8).
type Driver struct {
	Ctx        *Context
	Store      *store.Store
	Collective comm.Collective
	Checkpoint *checkpoint.Writer
	Timers     *telemetry.Timers

	CheckpointFrequency int
}

// NewDriver wires a Context to its collaborators for one rank.
func NewDriver(ctx *Context, s *store.Store, cl comm.Collective, ckpt *checkpoint.Writer, freq int) *Driver {
	return &Driver{
		Ctx:                 ctx,
		Store:               s,
		Collective:          cl,
		Checkpoint:          ckpt,
		Timers:              telemetry.NewTimers(),
		CheckpointFrequency: freq,
	}
}

// Step runs one full step of the pipeline in the strict order spec.md
// §4.8 lays out, recovering from the allocation-failure panic
// appendPair and FindNeighborsBuckets raise when growPairs fails and
// turning it back into a returned error.
func (d *Driver) Step(timestep int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if allocErr, ok := r.(error); ok {
				err = allocErr
				return
			}
			panic(r)
		}
	}()

	ctx := d.Ctx
	t := d.Timers

	if err := t.Time(telemetry.PhaseMarshal, func() error {
		owned := d.Store.List()
		ctx.NField = len(owned)
		if err := ctx.growParticles(ctx.NField); err != nil {
			return err
		}
		for k, rec := range owned {
			ctx.Particles[k] = recordToParticle(rec)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := t.Time(telemetry.PhaseGenerateVirtual, func() error {
		return GenerateVirtualParticles(ctx)
	}); err != nil {
		return err
	}

	if err := d.Collective.Barrier(); err != nil {
		return err
	}
	if err := t.Time(telemetry.PhaseBorderExchange, func() error {
		return BorderExchange(ctx, d.Collective)
	}); err != nil {
		return err
	}

	if err := t.Time(telemetry.PhaseTimeStep, func() error {
		d.timeStep(timestep)
		return nil
	}); err != nil {
		return err
	}

	if err := t.Time(telemetry.PhaseUnmarshal, func() error {
		for k := 0; k < ctx.NField; k++ {
			d.Store.Insert(particleToRecord(&ctx.Particles[k]))
		}
		return nil
	}); err != nil {
		return err
	}

	if err := d.Collective.Barrier(); err != nil {
		return err
	}
	if err := t.Time(telemetry.PhaseMigrate, func() error {
		return MigrateParticles(d.Store, d.Collective, ctx.SubdomainLo, ctx.Hi)
	}); err != nil {
		return err
	}

	if d.CheckpointFrequency > 0 && timestep%d.CheckpointFrequency == 0 {
		if err := d.Collective.Barrier(); err != nil {
			return err
		}
		if err := t.Time(telemetry.PhaseCheckpoint, func() error {
			return d.writeCheckpoint(timestep)
		}); err != nil {
			return err
		}
	}

	ctx.Log.Debug("step complete",
		"rank", ctx.Rank,
		"timestep", timestep,
		"n_field", ctx.NField,
		"mean_accel", meanFieldAccelMagnitude(ctx),
	)
	return nil
}

func meanFieldAccelMagnitude(ctx *Context) float64 {
	ax := make([]float64, ctx.NField)
	ay := make([]float64, ctx.NField)
	for i := 0; i < ctx.NField; i++ {
		ax[i] = ctx.Particles[i].AccX
		ay[i] = ctx.Particles[i].AccY
	}
	return telemetry.MeanAccelMagnitude(ax, ay)
}

// timeStep is spec.md §4.8 step 5: the physics pipeline that runs once
// the flat array holds owned particles, local mirrors and halo
// mirrors.
func (d *Driver) timeStep(timestep int) {
	ctx := d.Ctx
	if timestep > 0 {
		PredictorHalfStep(ctx)
	}
	FindNeighborsBuckets(ctx)
	Kernel(ctx)
	ContDensity(ctx)
	if timestep > 0 {
		Correction(ctx)
	}
	IntForce(ctx)
	ExtForce(ctx)
	CombineAcceleration(ctx)
	Corrector(ctx, timestep)
}

func (d *Driver) writeCheckpoint(timestep int) error {
	records, err := checkpoint.Collect(d.Store, d.Collective)
	if err != nil {
		return err
	}
	if d.Collective.Rank() != 0 {
		return nil
	}
	return d.Checkpoint.Write(records, timestep, d.CheckpointFrequency)
}

// Restore loads a checkpoint written at the given step/frequency pair
// into the store, for restart mode (spec.md §6, §12 "-r").
func Restore(s *store.Store, ckpt *checkpoint.Writer, step, frequency int, logger *slog.Logger) error {
	records, err := ckpt.Restart(step, frequency)
	if err != nil {
		return err
	}
	for _, rec := range records {
		s.Insert(rec)
	}
	logger.Info("restored checkpoint", "step", step, "particles", len(records))
	return nil
}

func recordToParticle(rec store.Record) Particle {
	return Particle{
		GlobalID: rec.GlobalID,
		X:        rec.X, Y: rec.Y,
		VX: rec.VX, VY: rec.VY,
		Rho: rec.Rho, Pressure: rec.Pressure, Mass: rec.Mass, H: rec.H,
		Type: TypeField,
	}
}

func particleToRecord(p *Particle) store.Record {
	return store.Record{
		GlobalID: p.GlobalID,
		X:        p.X, Y: p.Y,
		VX: p.VX, VY: p.VY,
		Rho: p.Rho, Pressure: p.Pressure, Mass: p.Mass, H: p.H,
	}
}
