package sim

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/config"
)

func testLogger() *slog.Logger { return slog.Default() }

func TestBorderExchangeImportsParticlesNearSharedBoundary(t *testing.T) {
	cfg := config.Default()
	cluster := comm.NewCluster(2)

	lo0, hi0 := cfg.SubdomainBounds(0, 2)
	lo1, hi1 := cfg.SubdomainBounds(1, 2)
	R := cfg.Derived.InteractionRadius

	ctx0 := NewContext(cfg, testLogger(), 0, 2)
	ctx0.Particles = []Particle{
		{GlobalID: 1, X: hi0 - R/2, Y: 0.5, H: cfg.Physics.SmoothingLength}, // within R of the shared boundary
		{GlobalID: 2, X: lo0 + 0.01, Y: 0.5, H: cfg.Physics.SmoothingLength}, // far from it
	}
	ctx0.NField = 2

	ctx1 := NewContext(cfg, testLogger(), 1, 2)
	ctx1.Particles = []Particle{
		{GlobalID: 3, X: lo1 + R/2, Y: 0.5, H: cfg.Physics.SmoothingLength}, // within R of the shared boundary
	}
	ctx1.NField = 1

	var wg sync.WaitGroup
	var err0, err1 error
	wg.Add(2)
	go func() {
		defer wg.Done()
		err0 = BorderExchange(ctx0, cluster.Member(0))
	}()
	go func() {
		defer wg.Done()
		err1 = BorderExchange(ctx1, cluster.Member(1))
	}()
	wg.Wait()

	if err0 != nil {
		t.Fatalf("rank 0 BorderExchange error: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("rank 1 BorderExchange error: %v", err1)
	}

	if ctx0.NMirror != 1 {
		t.Errorf("rank 0 NMirror = %d, want 1 (one import from rank 1)", ctx0.NMirror)
	}
	if ctx1.NMirror != 1 {
		t.Errorf("rank 1 NMirror = %d, want 1 (one import from rank 0)", ctx1.NMirror)
	}

	mirror0 := ctx0.Particles[ctx0.NField+ctx0.NVirt]
	if mirror0.GlobalID != 3 {
		t.Errorf("rank 0 imported mirror global id = %d, want 3", mirror0.GlobalID)
	}
	mirror1 := ctx1.Particles[ctx1.NField+ctx1.NVirt]
	if mirror1.GlobalID != 1 {
		t.Errorf("rank 1 imported mirror global id = %d, want 1", mirror1.GlobalID)
	}
}
