package sim

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEvalKernelZeroAtCutoff(t *testing.T) {
	p := &Pair{R: 3.0, Q: 3.0}
	evalKernel(p, 3.0, 0, 1.0)
	if !approxEqual(p.W, 0, 1e-9) {
		t.Errorf("W at q=3 = %v, want 0", p.W)
	}
}

func TestEvalKernelPositiveAtOrigin(t *testing.T) {
	p := &Pair{R: 0, Q: 0}
	evalKernel(p, 0, 0, 1.0)
	if p.W <= 0 {
		t.Errorf("W at q=0 = %v, want > 0", p.W)
	}
	if p.DWdX != 0 || p.DWdY != 0 {
		t.Errorf("gradient at q=0 = (%v, %v), want (0, 0)", p.DWdX, p.DWdY)
	}
}

func TestEvalKernelMonotoneDecreasing(t *testing.T) {
	h := 1.0
	qs := []float64{0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0}
	var last float64 = math.Inf(1)
	for _, q := range qs {
		p := &Pair{R: q * h, Q: q}
		evalKernel(p, q*h, 0, h)
		if p.W > last+1e-9 {
			t.Errorf("W not monotone decreasing at q=%v: got %v after %v", q, p.W, last)
		}
		last = p.W
	}
}

func TestKernelAccumulatesWSumAtBothEndpoints(t *testing.T) {
	ctx := testContext(t, []Particle{
		{X: 0, Y: 0, H: 1.0},
		{X: 0.5, Y: 0, H: 1.0},
	})
	ctx.Pairs = []Pair{{I: 0, J: 1, R: 0.5, Q: 0.5}}
	ctx.NPairs = 1

	Kernel(ctx)

	if ctx.Particles[0].WSum <= 0 {
		t.Errorf("particle 0 WSum = %v, want > 0", ctx.Particles[0].WSum)
	}
	if ctx.Particles[0].WSum != ctx.Particles[1].WSum {
		t.Errorf("WSum asymmetric: i=%v j=%v, want equal for a single symmetric pair",
			ctx.Particles[0].WSum, ctx.Particles[1].WSum)
	}
}
