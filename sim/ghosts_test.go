package sim

import "testing"

func TestGenerateVirtualParticlesLeftWallMirror(t *testing.T) {
	ctx := testContext(t, []Particle{
		{GlobalID: 1, X: 0.01, Y: 0.5, VX: 1, VY: 2, Rho: 1000, Mass: 0.01, H: 0.026, Type: TypeField},
	})
	ctx.NField = 1

	if err := GenerateVirtualParticles(ctx); err != nil {
		t.Fatalf("GenerateVirtualParticles returned error: %v", err)
	}

	if ctx.NVirt != 1 {
		t.Fatalf("NVirt = %d, want 1 for a particle within range of only the left wall", ctx.NVirt)
	}
	mirror := ctx.Particles[ctx.NField]
	if !approxEqual(mirror.X, -0.01, 1e-9) {
		t.Errorf("mirror X = %v, want -0.01", mirror.X)
	}
	if !approxEqual(mirror.Y, 0.5, 1e-9) {
		t.Errorf("mirror Y = %v, want 0.5 (unchanged)", mirror.Y)
	}
	if !approxEqual(mirror.VX, -1, 1e-9) {
		t.Errorf("mirror VX = %v, want -1", mirror.VX)
	}
	if !approxEqual(mirror.VY, 2, 1e-9) {
		t.Errorf("mirror VY = %v, want 2 (unchanged)", mirror.VY)
	}
	if mirror.Type != TypeVirtual {
		t.Errorf("mirror Type = %d, want %d", mirror.Type, TypeVirtual)
	}
}

func TestGenerateVirtualParticlesBottomLeftCorner(t *testing.T) {
	ctx := testContext(t, []Particle{
		{GlobalID: 1, X: 0.01, Y: 0.01, VX: 1, VY: -1, Rho: 1000, Mass: 0.01, H: 0.026, Type: TypeField},
	})
	ctx.NField = 1

	if err := GenerateVirtualParticles(ctx); err != nil {
		t.Fatalf("GenerateVirtualParticles returned error: %v", err)
	}

	// left, bottom, and the left-bottom corner: 3 mirrors.
	if ctx.NVirt != 3 {
		t.Fatalf("NVirt = %d, want 3 for a particle in the bottom-left corner region", ctx.NVirt)
	}

	var sawCorner bool
	for k := ctx.NField; k < ctx.NField+ctx.NVirt; k++ {
		m := ctx.Particles[k]
		if m.X < 0 && m.Y < 0 {
			sawCorner = true
			if !approxEqual(m.VX, -1, 1e-9) || !approxEqual(m.VY, 1, 1e-9) {
				t.Errorf("corner mirror velocity = (%v, %v), want (-1, 1)", m.VX, m.VY)
			}
		}
	}
	if !sawCorner {
		t.Error("no corner mirror (negative X and Y) found among generated mirrors")
	}
}

func TestGenerateVirtualParticlesNoMirrorFarFromWalls(t *testing.T) {
	ctx := testContext(t, []Particle{
		{GlobalID: 1, X: 0.5, Y: 0.5, Rho: 1000, Mass: 0.01, H: 0.026, Type: TypeField},
	})
	ctx.NField = 1

	if err := GenerateVirtualParticles(ctx); err != nil {
		t.Fatalf("GenerateVirtualParticles returned error: %v", err)
	}
	if ctx.NVirt != 0 {
		t.Errorf("NVirt = %d, want 0 for a particle far from every wall", ctx.NVirt)
	}
}

func TestGenerateVirtualParticlesMirrorPairsSurviveBucketDedup(t *testing.T) {
	h := 0.026
	base := []Particle{
		{GlobalID: 1, X: 0.01, Y: 0.5, Rho: 1000, Mass: 0.01, H: h, Type: TypeField},
	}

	bucketCtx := testContext(t, append([]Particle(nil), base...))
	if err := GenerateVirtualParticles(bucketCtx); err != nil {
		t.Fatalf("GenerateVirtualParticles (bucket ctx): %v", err)
	}
	FindNeighborsBuckets(bucketCtx)

	directCtx := testContext(t, append([]Particle(nil), base...))
	if err := GenerateVirtualParticles(directCtx); err != nil {
		t.Fatalf("GenerateVirtualParticles (direct ctx): %v", err)
	}
	FindNeighborsDirect(directCtx)

	if bucketCtx.NPairs == 0 {
		t.Fatal("bucket search found 0 pairs; the field particle and its own wall mirror must interact")
	}
	if bucketCtx.NPairs != directCtx.NPairs {
		t.Errorf("bucket found %d pairs, direct found %d, want equal (field particle vs its own mirror)",
			bucketCtx.NPairs, directCtx.NPairs)
	}
}

func TestGenerateVirtualParticlesResetsCountEachCall(t *testing.T) {
	ctx := testContext(t, []Particle{
		{GlobalID: 1, X: 0.01, Y: 0.5, Rho: 1000, Mass: 0.01, H: 0.026, Type: TypeField},
	})
	ctx.NField = 1

	if err := GenerateVirtualParticles(ctx); err != nil {
		t.Fatalf("first call: %v", err)
	}
	first := ctx.NVirt

	if err := GenerateVirtualParticles(ctx); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if ctx.NVirt != first {
		t.Errorf("second call NVirt = %d, want %d (should not accumulate)", ctx.NVirt, first)
	}
}
