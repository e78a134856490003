// Package store implements the particle store external collaborator
// spec.md §6 describes: insert/remove/count/list of owned field
// particles, keyed by a stable global id. This repository backs it
// with an mlange-42/ark ECS world, the same library the teacher uses
// to hold its organism entities, repurposed here to hold field
// particles instead.
package store

import (
	"github.com/mlange-42/ark/ecs"
)

// Kinematic holds a field particle's position and velocity.
type Kinematic struct {
	X, Y   float64
	VX, VY float64
}

// Physical holds a field particle's density, pressure, mass and
// smoothing length.
type Physical struct {
	Rho      float64
	Pressure float64
	Mass     float64
	H        float64
}

// GlobalID tags an entity with its stable, migration-surviving
// identifier.
type GlobalID struct {
	ID uint64
}

// Record is the value type used to move a field particle's full state
// into and out of the store; it has no reference to the ECS entity
// that backs it.
type Record struct {
	GlobalID uint64
	X, Y     float64
	VX, VY   float64
	Rho      float64
	Pressure float64
	Mass     float64
	H        float64
}

// Store is the external collaborator contract from spec.md §6.
// Particles are addressed by record while held (via Record.GlobalID);
// List populates its output in unspecified order.
type Store struct {
	world *ecs.World

	mapper *ecs.Map3[GlobalID, Kinematic, Physical] // entity creation, matching the full component set
	ids    *ecs.Map1[GlobalID]                      // point lookups
	kin    *ecs.Map1[Kinematic]
	phys   *ecs.Map1[Physical]

	filter *ecs.Filter3[GlobalID, Kinematic, Physical]

	byGlobalID map[uint64]ecs.Entity
}

// New constructs an empty particle store.
func New() *Store {
	world := ecs.NewWorld()
	s := &Store{
		world:      world,
		mapper:     ecs.NewMap3[GlobalID, Kinematic, Physical](world),
		ids:        ecs.NewMap1[GlobalID](world),
		kin:        ecs.NewMap1[Kinematic](world),
		phys:       ecs.NewMap1[Physical](world),
		byGlobalID: make(map[uint64]ecs.Entity),
	}
	s.filter = ecs.NewFilter3[GlobalID, Kinematic, Physical](world)
	return s
}

// Init prepares the store for a run. It exists to mirror the external
// particle-store contract's init()/finalize() pair; the ark-backed
// implementation has nothing to allocate up front.
func (s *Store) Init() {}

// Finalize releases the store's resources. The ark world has no
// explicit teardown; this is a no-op kept to satisfy the contract.
func (s *Store) Finalize() {}

// Insert adds a particle record to the store, or updates it in place
// if a particle with the same GlobalID is already present (as happens
// when the step driver writes each step's results back into the store).
func (s *Store) Insert(rec Record) {
	if e, ok := s.byGlobalID[rec.GlobalID]; ok {
		kin := s.kin.Get(e)
		kin.X, kin.Y, kin.VX, kin.VY = rec.X, rec.Y, rec.VX, rec.VY
		phys := s.phys.Get(e)
		phys.Rho, phys.Pressure, phys.Mass, phys.H = rec.Rho, rec.Pressure, rec.Mass, rec.H
		return
	}

	entity := s.mapper.NewEntity(
		&GlobalID{ID: rec.GlobalID},
		&Kinematic{X: rec.X, Y: rec.Y, VX: rec.VX, VY: rec.VY},
		&Physical{Rho: rec.Rho, Pressure: rec.Pressure, Mass: rec.Mass, H: rec.H},
	)
	s.byGlobalID[rec.GlobalID] = entity
}

// Remove deletes the particle with the given global id, if present.
func (s *Store) Remove(globalID uint64) {
	e, ok := s.byGlobalID[globalID]
	if !ok {
		return
	}
	s.world.RemoveEntity(e)
	delete(s.byGlobalID, globalID)
}

// Count returns the number of particles currently owned by the store.
func (s *Store) Count() int {
	return len(s.byGlobalID)
}

// List returns every owned particle as a Record, in unspecified order.
func (s *Store) List() []Record {
	out := make([]Record, 0, s.Count())
	query := s.filter.Query()
	for query.Next() {
		id, kin, phys := query.Get()
		out = append(out, Record{
			GlobalID: id.ID,
			X:        kin.X,
			Y:        kin.Y,
			VX:       kin.VX,
			VY:       kin.VY,
			Rho:      phys.Rho,
			Pressure: phys.Pressure,
			Mass:     phys.Mass,
			H:        phys.H,
		})
	}
	return out
}
