package sim

import "math"

// kernelFactor returns F = 7 / (478*pi*h^2), the quintic spline
// normalization constant for smoothing length h.
func kernelFactor(h float64) float64 {
	return 7.0 / (478.0 * math.Pi * h * h)
}

// evalKernel fills in a pair's kernel value and gradient from its
// already-populated R, Q and the separation components dx = x_i - x_j
// (spec.md §4.1). h is the common smoothing length of the interacting
// particles.
func evalKernel(p *Pair, dx, dy, h float64) {
	f := kernelFactor(h)
	q := p.Q

	switch {
	case q == 0:
		p.W = f * (math.Pow(3, 5) - 6*math.Pow(2, 5) + 15*math.Pow(1, 5))
		p.DWdX, p.DWdY = 0, 0

	case q > 0 && q <= 1:
		p.W = f * (math.Pow(3-q, 5) - 6*math.Pow(2-q, 5) + 15*math.Pow(1-q, 5))
		c := (f / (h * h)) * (-120 + 120*q*q - 50*q*q*q)
		p.DWdX = c * dx
		p.DWdY = c * dy

	case q > 1 && q <= 2:
		p.W = f * (math.Pow(3-q, 5) - 6*math.Pow(2-q, 5))
		c := (f / h) * (-5*math.Pow(3-q, 4) + 30*math.Pow(2-q, 4)) / p.R
		p.DWdX = c * dx
		p.DWdY = c * dy

	case q > 2 && q <= 3:
		p.W = f * math.Pow(3-q, 5)
		c := (f / h) * (-5 * math.Pow(3-q, 4)) / p.R
		p.DWdX = c * dx
		p.DWdY = c * dy

	default:
		p.W = 0
		p.DWdX, p.DWdY = 0, 0
	}
}

// Kernel evaluates w and dw/dx for every pair in the list and
// accumulates WSum at both endpoints (spec.md §4.1). It is the first
// stencil run each step, immediately after neighbor search. Filling in
// a pair's own W/DWdX/DWdY is a plain fork-join over disjoint pair
// slots; accumulating into WSum scatters into whichever particle
// indices the pair names, which two different workers' pairs can
// collide on, so that part runs through the shadow-accumulator
// pattern the pair stencils use (spec.md §5, §9).
func Kernel(ctx *Context) {
	parallelFor(ctx.NPairs, func(lo, hi int) {
		for kk := lo; kk < hi; kk++ {
			p := &ctx.Pairs[kk]
			i, j := &ctx.Particles[p.I], &ctx.Particles[p.J]
			dx := i.X - j.X
			dy := i.Y - j.Y
			evalKernel(p, dx, dy, i.H)
		}
	})

	reduceOverPairs(ctx.NPairs, ctx.NTotal(), &ctx.shadowWSum,
		func(shadow []float64, lo, hi int) {
			for kk := lo; kk < hi; kk++ {
				p := &ctx.Pairs[kk]
				shadow[p.I] += p.W
				shadow[p.J] += p.W
			}
		},
		func(idx int, sum float64) {
			ctx.Particles[idx].WSum += sum
		},
	)
}
