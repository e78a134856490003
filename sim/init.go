package sim

import (
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/store"
)

// InitializeColumn builds the dam-break initial condition: a regular
// grid of field particles filling [0, ColumnWidth] x [0, Height] at
// InitialSpacing, offset by the smoothing length off both walls so the
// first row/column doesn't sit exactly on the wall plane, restricted
// to the particles whose x falls inside this rank's subdomain. Global
// ids are the row-major grid index, so they are unique and stable
// across the whole collective without any coordination at startup.
// Initial pressure is hydrostatic, p = rho0 * g * (T - y), and density
// starts at rho0 everywhere (original_source/sph.c initialize(), which
// seeds x = H + j*delta, y = H + i*delta).
func InitializeColumn(cfg *config.Config, rank, size int) []store.Record {
	lo, hi := cfg.SubdomainBounds(rank, size)
	delta := cfg.Tank.InitialSpacing
	offset := cfg.Physics.SmoothingLength

	nx := 1 + int(cfg.Tank.ColumnWidth/delta)
	ny := 1 + int(cfg.Tank.Height/delta)

	var recs []store.Record
	for j := 0; j < ny; j++ {
		y := offset + float64(j)*delta
		for i := 0; i < nx; i++ {
			x := offset + float64(i)*delta
			if x < lo || (x >= hi && rank != size-1) {
				continue
			}
			gid := uint64(j*nx + i)
			recs = append(recs, store.Record{
				GlobalID: gid,
				X:        x,
				Y:        y,
				VX:       0,
				VY:       0,
				Rho:      cfg.Physics.ReferenceDensity,
				Pressure: cfg.Physics.ReferenceDensity * cfg.Physics.Gravity * (cfg.Tank.Height - y),
				Mass:     cfg.Derived.ParticleMass,
				H:        cfg.Physics.SmoothingLength,
			})
		}
	}
	return recs
}
