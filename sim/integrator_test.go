package sim

import "testing"

func TestReflectFlipsVYAtFloor(t *testing.T) {
	p := &Particle{X: 1, Y: -0.1, VX: 0, VY: -1}
	reflect(p, 3.0)
	if p.VY != 1 {
		t.Errorf("VY after floor reflection = %v, want 1", p.VY)
	}
}

func TestReflectFlipsVXAtRightWall(t *testing.T) {
	p := &Particle{X: 3.1, Y: 0.5, VX: 1, VY: 0}
	reflect(p, 3.0)
	if p.VX != -1 {
		t.Errorf("VX after right-wall reflection = %v, want -1", p.VX)
	}
}

func TestReflectFlipsVXAtLeftWall(t *testing.T) {
	p := &Particle{X: -0.1, Y: 0.5, VX: -1, VY: 0}
	reflect(p, 3.0)
	if p.VX != 1 {
		t.Errorf("VX after left-wall reflection = %v, want 1", p.VX)
	}
}

func TestReflectLeavesInteriorVelocityAlone(t *testing.T) {
	p := &Particle{X: 1.5, Y: 0.5, VX: 1, VY: -1}
	reflect(p, 3.0)
	if p.VX != 1 || p.VY != -1 {
		t.Errorf("interior particle velocity changed: (%v, %v), want (1, -1)", p.VX, p.VY)
	}
}

func TestCorrectorAppliesReflectionOnTimestepZero(t *testing.T) {
	ctx := testContext(t, []Particle{
		{X: -0.1, Y: 0.5, VX: -1, VY: 0, Rho: 1000, Type: TypeField},
	})
	ctx.NField = 1

	Corrector(ctx, 0)

	if ctx.Particles[0].VX != 1 {
		t.Errorf("VX after Corrector(timestep=0) = %v, want reflected 1", ctx.Particles[0].VX)
	}
}

func TestCorrectorAppliesReflectionAfterTimestepZero(t *testing.T) {
	ctx := testContext(t, []Particle{
		{X: -0.1, Y: 0.5, VX: -1, VY: 0, Rho: 1000, Type: TypeField},
	})
	ctx.NField = 1

	Corrector(ctx, 1)

	if ctx.Particles[0].VX != 1 {
		t.Errorf("VX after Corrector(timestep=1) = %v, want reflected 1", ctx.Particles[0].VX)
	}
}

func TestPredictorHalfStepOnlyTouchesFieldParticles(t *testing.T) {
	ctx := testContext(t, []Particle{
		{X: 0, Y: 0, VX: 0, VY: 0, AccX: 1, AccY: 1, Type: TypeField},
		{X: 0, Y: 0, VX: 0, VY: 0, AccX: 1, AccY: 1, Type: TypeVirtual},
	})
	ctx.NField = 1

	PredictorHalfStep(ctx)

	if ctx.Particles[0].VX == 0 {
		t.Error("field particle VX unchanged, want half-kick applied")
	}
	if ctx.Particles[1].VX != 0 {
		t.Error("virtual mirror VX changed, want untouched (mirrors are not integrated)")
	}
}
