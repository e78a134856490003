package config

import "testing"

func TestDefaultDerivesInteractionRadius(t *testing.T) {
	cfg := Default()

	want := cfg.Physics.ScaleK * cfg.Physics.SmoothingLength
	if cfg.Derived.InteractionRadius != want {
		t.Fatalf("InteractionRadius = %v, want %v", cfg.Derived.InteractionRadius, want)
	}
	if cfg.Derived.SpeedOfSound <= 0 {
		t.Fatalf("SpeedOfSound = %v, want > 0", cfg.Derived.SpeedOfSound)
	}
	if cfg.Derived.ParticleMass <= 0 {
		t.Fatalf("ParticleMass = %v, want > 0", cfg.Derived.ParticleMass)
	}
}

func TestLoadOverridesMergeOntoDefaults(t *testing.T) {
	overrides := []byte(`
run:
  max_iteration: 42
`)
	cfg, err := Load(overrides)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.MaxIteration != 42 {
		t.Fatalf("MaxIteration = %d, want 42", cfg.Run.MaxIteration)
	}
	// Unrelated fields keep their embedded defaults.
	if cfg.Tank.Width != 3.0 {
		t.Fatalf("Tank.Width = %v, want 3.0 (default preserved)", cfg.Tank.Width)
	}
}

func TestSubdomainBounds(t *testing.T) {
	cfg := Default()
	cfg.Tank.Width = 3.0

	tests := []struct {
		rank, size int
		lo, hi     float64
	}{
		{0, 3, 0.0, 1.0},
		{1, 3, 1.0, 2.0},
		{2, 3, 2.0, 3.0},
	}
	for _, tc := range tests {
		lo, hi := cfg.SubdomainBounds(tc.rank, tc.size)
		if !approxEqual(lo, tc.lo, 1e-9) || !approxEqual(hi, tc.hi, 1e-9) {
			t.Errorf("SubdomainBounds(%d,%d) = [%v,%v), want [%v,%v)", tc.rank, tc.size, lo, hi, tc.lo, tc.hi)
		}
	}
}

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
