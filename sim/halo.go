package sim

import "github.com/pthm-cable/sph/comm"

const (
	haloCountTag   = 10
	haloPayloadTag = 11
)

// BorderExchange implements spec.md §4.6: every rank scans its owned
// and locally-mirrored particles for records within one interaction
// radius of either subdomain boundary, tells its ring neighbors how
// many it is sending, and exchanges the payloads. The imported
// records land in the halo-mirror range [NField+NVirt, NTotal) — west
// imports first, then east imports — and are read-only for the rest
// of the step.
func BorderExchange(ctx *Context, cl comm.Collective) error {
	R := ctx.Cfg.Derived.InteractionRadius
	west, east := cl.West(), cl.East()
	n := ctx.NField + ctx.NVirt

	exportsWest := func(p *Particle) bool { return west != comm.NoRank && (p.X-ctx.SubdomainLo) < R }
	exportsEast := func(p *Particle) bool { return east != comm.NoRank && (ctx.Hi-p.X) < R }

	countWest, countEast := 0, 0
	for k := 0; k < n; k++ {
		p := &ctx.Particles[k]
		if exportsWest(p) {
			countWest++
		}
		if exportsEast(p) {
			countEast++
		}
	}

	importWest, importEast := 0, 0
	if west != comm.NoRank {
		resp, err := cl.SendRecv(west, haloCountTag, encodeCount(countWest), west, haloCountTag)
		if err != nil {
			return err
		}
		importWest = decodeCount(resp)
	}
	if east != comm.NoRank {
		resp, err := cl.SendRecv(east, haloCountTag, encodeCount(countEast), east, haloCountTag)
		if err != nil {
			return err
		}
		importEast = decodeCount(resp)
	}

	westOut := make([]Particle, 0, countWest)
	eastOut := make([]Particle, 0, countEast)
	for k := 0; k < n; k++ {
		p := &ctx.Particles[k]
		if exportsWest(p) {
			westOut = append(westOut, *p)
		}
		if exportsEast(p) {
			eastOut = append(eastOut, *p)
		}
	}

	ctx.NMirror = importWest + importEast
	if err := ctx.growParticles(n + ctx.NMirror); err != nil {
		return err
	}

	if west != comm.NoRank {
		resp, err := cl.SendRecv(west, haloPayloadTag, encodeRecords(westOut), west, haloPayloadTag)
		if err != nil {
			return err
		}
		copy(ctx.Particles[n:n+importWest], decodeRecords(resp))
	}
	if east != comm.NoRank {
		resp, err := cl.SendRecv(east, haloPayloadTag, encodeRecords(eastOut), east, haloPayloadTag)
		if err != nil {
			return err
		}
		copy(ctx.Particles[n+importWest:n+importWest+importEast], decodeRecords(resp))
	}

	return nil
}
