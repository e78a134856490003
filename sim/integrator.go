package sim

// PredictorHalfStep applies the half-kick, full-drift predictor at the
// top of every step but the first (spec.md §4.4, timestep >= 1): field
// particles advance by the acceleration computed on the *previous*
// step, before this step's stencils run.
func PredictorHalfStep(ctx *Context) {
	dt := ctx.Cfg.Physics.DT
	for k := 0; k < ctx.NField; k++ {
		p := &ctx.Particles[k]
		p.VX += 0.5 * dt * p.AccX
		p.VY += 0.5 * dt * p.AccY
		p.X += dt * p.VX
		p.Y += dt * p.VY
	}
}

// Corrector completes the leapfrog step after the stencils have run,
// advancing density and velocity by the remaining half-step, then
// position by a full step on timestep 0 only (spec.md §4.4). Boundary
// reflection is applied to field-particle velocities on every
// corrector call.
func Corrector(ctx *Context, timestep int) {
	dt := ctx.Cfg.Physics.DT
	width := ctx.Cfg.Tank.Width

	for k := 0; k < ctx.NField; k++ {
		p := &ctx.Particles[k]

		p.Rho += 0.5 * dt * p.DRhoDt
		p.VX += 0.5 * dt * p.AccX
		p.VY += 0.5 * dt * p.AccY

		reflect(p, width)
		if timestep == 0 {
			p.X += dt * p.VX
			p.Y += dt * p.VY
		}
	}
}

// reflect flips the velocity component that would drive a field
// particle through a solid wall (spec.md §4.4, §8 "Reflective
// boundary").
func reflect(p *Particle, width float64) {
	if p.Y < 0 && p.VY < 0 {
		p.VY = -p.VY
	}
	if p.X > width && p.VX > 0 {
		p.VX = -p.VX
	}
	if p.X < 0 && p.VX < 0 {
		p.VX = -p.VX
	}
}
