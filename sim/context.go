package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sph/config"
)

// ErrAllocation is wrapped with context and returned whenever a grow
// operation would need more memory than the process can provide. The
// driver treats it as fatal (spec.md §7 item 3).
var ErrAllocation = fmt.Errorf("sph: allocation failure")

const minCapacity = 4096

// Context is the explicit, driver-owned simulation state that the
// original C translation unit kept as process-wide globals (flat
// array, pair array, bucket grid, counts, timers). Every stencil in
// this package takes a *Context instead of reaching for package-level
// variables.
type Context struct {
	Cfg *config.Config
	Log *slog.Logger

	Rank, Size           int
	SubdomainLo, Hi      float64

	// Flat array, partitioned [0,NField) owned field particles,
	// [NField,NField+NVirt) local virtual mirrors,
	// [NField+NVirt,NTotal) remote halo mirrors.
	Particles []Particle
	NField    int
	NVirt     int
	NMirror   int

	Pairs  []Pair
	NPairs int

	grid *bucketGrid

	// Per-worker shadow accumulators for the pair stencils' scatter
	// writes, reused across steps (spec.md §5, §9 "atomic scatter"
	// strategy (a)). Unexported: each accumulated field has its own set
	// (IntForce uses two, one per acceleration component).
	shadowWSum    shadowSet
	shadowDRhoDt  shadowSet
	shadowAVRho   shadowSet
	shadowIntAccX shadowSet
	shadowIntAccY shadowSet

	// Per-worker neighbor-search scratch: local pair buffers and
	// neighbor-count shadows, reused across steps.
	searchPairs  [][]Pair
	searchCounts shadowSet
}

// NewContext builds a Context for one rank out of size, with the
// subdomain bounds spec.md §4.8 expects to already be computed.
func NewContext(cfg *config.Config, logger *slog.Logger, rank, size int) *Context {
	lo, hi := cfg.SubdomainBounds(rank, size)
	width := hi - lo
	radius := cfg.Derived.InteractionRadius
	if width <= radius {
		logger.Warn("subdomain narrower than interaction radius; results may be degraded",
			"rank", rank, "width", width, "radius", radius)
	}
	return &Context{
		Cfg:         cfg,
		Log:         logger,
		Rank:        rank,
		Size:        size,
		SubdomainLo: lo,
		Hi:          hi,
		Pairs:       make([]Pair, minCapacity),
	}
}

// NTotal is the number of live records currently in Particles: field +
// local virtual mirrors + remote halo mirrors.
func (c *Context) NTotal() int {
	return c.NField + c.NVirt + c.NMirror
}

// maxCapacity bounds how large the particle/pair arrays are allowed to
// grow; a request beyond this is treated as an allocation failure
// rather than handed to make() (spec.md §7 item 3).
const maxCapacity = 1 << 30

// growParticles ensures cap(c.Particles) >= required, preserving
// existing contents up to min(len, required).
func (c *Context) growParticles(required int) error {
	if required < 0 || required > maxCapacity {
		return fmt.Errorf("%w: particle array to %d entries", ErrAllocation, required)
	}
	if required <= cap(c.Particles) {
		if required > len(c.Particles) {
			c.Particles = c.Particles[:cap(c.Particles)][:required]
		}
		return nil
	}
	newCap := cap(c.Particles)
	if newCap == 0 {
		newCap = minCapacity
	}
	for newCap < required {
		newCap *= 2
	}
	grown := make([]Particle, required, newCap)
	copy(grown, c.Particles)
	c.Particles = grown
	return nil
}

// growPairs ensures cap(c.Pairs) >= required, doubling from its current
// capacity rather than pre-allocating the n_total^2 upper bound (spec.md
// §9 open question: adaptive growth replaces the quadratic allocation).
func (c *Context) growPairs(required int) error {
	if required < 0 || required > maxCapacity {
		return fmt.Errorf("%w: pair array to %d entries", ErrAllocation, required)
	}
	if required <= cap(c.Pairs) {
		return nil
	}
	newCap := cap(c.Pairs)
	if newCap == 0 {
		newCap = minCapacity
	}
	for newCap < required {
		newCap *= 2
	}
	grown := make([]Pair, newCap)
	copy(grown, c.Pairs)
	c.Pairs = grown
	return nil
}

// appendPair grows the pair array if needed and writes a new pair at
// the next free slot, returning its index. Only the geometric fields
// (I, J, R, Q) are populated here; W and its gradient are filled in by
// the Kernel stencil, which runs once over the whole pair list after
// neighbor search completes (spec.md §4.1, §4.2).
func (c *Context) appendPair(i, j int, r, h float64) int {
	if err := c.growPairs(c.NPairs + 1); err != nil {
		panic(err) // allocation failures are handled by the caller via recover in Step
	}
	kk := c.NPairs
	c.NPairs++
	p := &c.Pairs[kk]
	p.I, p.J = i, j
	p.R = r
	p.Q = r / h
	p.W, p.DWdX, p.DWdY = 0, 0, 0
	return kk
}

func dist2(a, b *Particle) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
