package sim

import (
	"sync"
	"testing"

	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/store"
)

// TestMigrateParticlesCrossesRankBoundary reproduces the scenario a
// 3-rank collective with B=3.0 describes: a particle on rank 1, just
// west of rank 1's subdomain boundary after its step, migrates to rank
// 0 with its global id preserved.
func TestMigrateParticlesCrossesRankBoundary(t *testing.T) {
	cluster := comm.NewCluster(3)

	lo0, hi0 := 0.0, 1.0
	lo1, hi1 := 1.0, 2.0
	lo2, hi2 := 2.0, 3.0

	s0 := store.New()
	s1 := store.New()
	s2 := store.New()
	s1.Insert(store.Record{GlobalID: 42, X: 0.9, Y: 0.1}) // crossed west out of rank 1's subdomain

	var wg sync.WaitGroup
	var err0, err1, err2 error
	wg.Add(3)
	go func() {
		defer wg.Done()
		err0 = MigrateParticles(s0, cluster.Member(0), lo0, hi0)
	}()
	go func() {
		defer wg.Done()
		err1 = MigrateParticles(s1, cluster.Member(1), lo1, hi1)
	}()
	go func() {
		defer wg.Done()
		err2 = MigrateParticles(s2, cluster.Member(2), lo2, hi2)
	}()
	wg.Wait()

	if err0 != nil || err1 != nil || err2 != nil {
		t.Fatalf("MigrateParticles errors: rank0=%v rank1=%v rank2=%v", err0, err1, err2)
	}

	if s1.Count() != 0 {
		t.Errorf("rank 1 still owns %d particles, want 0 (particle migrated away)", s1.Count())
	}
	if s0.Count() != 1 {
		t.Fatalf("rank 0 owns %d particles, want 1", s0.Count())
	}
	got := s0.List()[0]
	if got.GlobalID != 42 {
		t.Errorf("migrated particle global id = %d, want 42 (preserved)", got.GlobalID)
	}
	if got.X != 0.9 {
		t.Errorf("migrated particle X = %v, want 0.9 (unchanged by migration)", got.X)
	}
}

func TestMigrateParticlesLeavesInteriorParticlesInPlace(t *testing.T) {
	cluster := comm.NewCluster(2)
	s0 := store.New()
	s1 := store.New()
	s1.Insert(store.Record{GlobalID: 7, X: 1.5, Y: 0.1})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = MigrateParticles(s0, cluster.Member(0), 0.0, 1.0)
	}()
	go func() {
		defer wg.Done()
		_ = MigrateParticles(s1, cluster.Member(1), 1.0, 2.0)
	}()
	wg.Wait()

	if s1.Count() != 1 {
		t.Errorf("rank 1 owns %d particles, want 1 (interior particle should stay)", s1.Count())
	}
}
