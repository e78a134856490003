package sim

// GenerateVirtualParticles emits mirror particles for solid walls and
// corners into [NField, NField+NVirt) (spec.md §4.5). There is no top
// wall: the tank is open above the fluid.
//
// Capacity is pre-grown to 5*NField, the maximum number of mirrors any
// one field particle can contribute (left, right, bottom, and the two
// bottom corners).
func GenerateVirtualParticles(ctx *Context) error {
	ctx.NVirt = 0
	if err := ctx.growParticles(ctx.NField * 5); err != nil {
		return err
	}

	h := ctx.Cfg.Physics.SmoothingLength
	boundary := 1.55 * h
	width := ctx.Cfg.Tank.Width

	// mirrorIDBits shifts a per-wall-slot tag into GlobalID's high bits so
	// every mirror's id is distinct from its source's and from every other
	// mirror of the same source. This is what lets FindNeighborsBuckets'
	// id-based dedup (q.GlobalID < p.GlobalID) pair a field particle with
	// its own mirror exactly once, matching FindNeighborsDirect's
	// index-based dedup: a shared id would make that comparison always
	// false in one direction and drop the pair. Mirrors are regenerated
	// every step and never migrate or checkpoint, so the tagged id only
	// needs to be internally consistent within one step.
	const mirrorIDBits = 48

	emit := func(src *Particle, slot uint64, x, y, vx, vy float64) {
		gk := ctx.NField + ctx.NVirt
		ctx.NVirt++
		m := &ctx.Particles[gk]
		m.X, m.Y = x, y
		m.VX, m.VY = vx, vy
		m.Pressure = src.Pressure
		m.Rho = src.Rho
		m.Mass = src.Mass
		m.H = src.H
		m.Type = TypeVirtual
		m.GlobalID = (slot << mirrorIDBits) | src.GlobalID
	}

	for k := 0; k < ctx.NField; k++ {
		p := &ctx.Particles[k]

		left := p.X < boundary
		right := p.X > width-boundary
		bottom := p.Y < boundary

		if left {
			emit(p, 1, -p.X, p.Y, -p.VX, p.VY)
		}
		if right {
			emit(p, 2, 2*width-p.X, p.Y, -p.VX, p.VY)
		}
		if bottom {
			emit(p, 3, p.X, -p.Y, p.VX, -p.VY)
		}
		if left && bottom {
			emit(p, 4, -p.X, -p.Y, -p.VX, -p.VY)
		}
		if right && bottom {
			emit(p, 5, 2*width-p.X, -p.Y, -p.VX, -p.VY)
		}
	}
	return nil
}
