package sim

import "math"

// ContDensity is the continuity stencil (spec.md §4.3 "cont_density").
// It zeros dRho/dt over [0, NTotal), accumulates it from every pair,
// then advances density by a half-step. The zero/half-step loops are
// plain fork-join (each k only ever touches its own particle); the
// pair loop scatters into both endpoints of a pair and runs through
// reduceOverPairs's per-worker shadow accumulators instead (spec.md §5).
func ContDensity(ctx *Context) {
	n := ctx.NTotal()
	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			ctx.Particles[k].DRhoDt = 0
		}
	})

	reduceOverPairs(ctx.NPairs, n, &ctx.shadowDRhoDt,
		func(shadow []float64, lo, hi int) {
			for kk := lo; kk < hi; kk++ {
				p := &ctx.Pairs[kk]
				i, j := &ctx.Particles[p.I], &ctx.Particles[p.J]

				vccIJ := (i.VX-j.VX)*p.DWdX + (i.VY-j.VY)*p.DWdY
				shadow[p.I] += i.Rho * (j.Mass / j.Rho) * vccIJ

				// Reverse sign of the gradient: it was computed from X(i)-X(j).
				vccJI := (j.VX-i.VX)*(-p.DWdX) + (j.VY-i.VY)*(-p.DWdY)
				shadow[p.J] += j.Rho * (i.Mass / i.Rho) * vccJI
			}
		},
		func(idx int, sum float64) {
			ctx.Particles[idx].DRhoDt += sum
		},
	)

	dt := ctx.Cfg.Physics.DT
	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			ctx.Particles[k].Rho += 0.5 * dt * ctx.Particles[k].DRhoDt
		}
	})
}

// Correction is the XSPH-like density correction stencil (spec.md §4.3
// "correction"). WSum and AVRho are reset in neighbor search, at the
// top of the step; this stencil only accumulates into AVRho and
// applies it.
func Correction(ctx *Context) {
	n := ctx.NTotal()

	reduceOverPairs(ctx.NPairs, n, &ctx.shadowAVRho,
		func(shadow []float64, lo, hi int) {
			for kk := lo; kk < hi; kk++ {
				p := &ctx.Pairs[kk]
				i, j := &ctx.Particles[p.I], &ctx.Particles[p.J]

				drho := i.Rho - j.Rho
				shadow[p.I] -= drho * p.W / i.WSum

				drho = j.Rho - i.Rho
				shadow[p.J] -= drho * p.W / j.WSum
			}
		},
		func(idx int, sum float64) {
			ctx.Particles[idx].AVRho += sum
		},
	)

	refDensity := ctx.Cfg.Physics.ReferenceDensity
	floor := ctx.Cfg.Physics.VirtualNeighborFloor
	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			if p.Type < 0 && p.NeighborCount < floor {
				p.Rho = refDensity
			} else {
				p.Rho += 0.5 * p.AVRho
			}
		}
	})
}

// IntForce is the internal (pressure) force stencil (spec.md §4.3
// "int_force"). It zeros the internal acceleration accumulator,
// resets density for low-neighbor field particles, derives pressure
// via the Tait equation of state, then accumulates pairwise pressure
// forces with opposite-sign contributions at i and j.
func IntForce(ctx *Context) {
	n := ctx.NTotal()
	refDensity := ctx.Cfg.Physics.ReferenceDensity
	c := ctx.Cfg.Derived.SpeedOfSound
	freeSurface := ctx.Cfg.Physics.FreeSurfaceThreshold

	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			p.IntAccX, p.IntAccY = 0, 0
		}
	})

	parallelFor(ctx.NField, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			if p.NeighborCount < freeSurface {
				p.Rho = refDensity
			}
		}
	})

	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			p.Pressure = c * c * refDensity * (math.Pow(p.Rho/refDensity, 7) - 1) / 7
		}
	})

	reduceOverPairs(ctx.NPairs, n, &ctx.shadowIntAccX,
		func(shadow []float64, lo, hi int) {
			for kk := lo; kk < hi; kk++ {
				p := &ctx.Pairs[kk]
				i, j := &ctx.Particles[p.I], &ctx.Particles[p.J]
				aij := i.Pressure/(i.Rho*i.Rho) + j.Pressure/(j.Rho*j.Rho)
				shadow[p.I] += -j.Mass * aij * p.DWdX
				shadow[p.J] += i.Mass * aij * p.DWdX
			}
		},
		func(idx int, sum float64) {
			ctx.Particles[idx].IntAccX += sum
		},
	)

	reduceOverPairs(ctx.NPairs, n, &ctx.shadowIntAccY,
		func(shadow []float64, lo, hi int) {
			for kk := lo; kk < hi; kk++ {
				p := &ctx.Pairs[kk]
				i, j := &ctx.Particles[p.I], &ctx.Particles[p.J]
				aij := i.Pressure/(i.Rho*i.Rho) + j.Pressure/(j.Rho*j.Rho)
				shadow[p.I] += -j.Mass * aij * p.DWdY
				shadow[p.J] += i.Mass * aij * p.DWdY
			}
		},
		func(idx int, sum float64) {
			ctx.Particles[idx].IntAccY += sum
		},
	)
}

// ExtForce sets the gravity acceleration for field particles only
// (spec.md §4.3 "ext_force").
func ExtForce(ctx *Context) {
	g := ctx.Cfg.Physics.Gravity
	parallelFor(ctx.NField, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			p.ExtAccX = 0
			p.ExtAccY = -g
		}
	})
}

// CombineAcceleration sums internal and external accelerations into
// the total acceleration used by the integrator, for field particles
// only (spec.md §4.8 step 5).
func CombineAcceleration(ctx *Context) {
	parallelFor(ctx.NField, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &ctx.Particles[k]
			p.AccX = p.IntAccX + p.ExtAccX
			p.AccY = p.IntAccY + p.ExtAccY
		}
	})
}
