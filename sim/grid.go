package sim

import (
	"math"
	"sync"
)

// bucketGrid is a uniform 2D cell cover of the extended subdomain
// [SubdomainLo-R, Hi+R] x [-R, T+R], cell edge R = scale_k*h, so every
// neighbor of a particle lies in the 3x3 block of cells centered on
// its own cell (spec.md §4.2). Cells own resizable slices of particle
// indices into Context.Particles, reused across steps rather than
// reallocated (spec.md §9 "unbounded linked-list buckets"). Insertion
// is guarded by a per-bucket mutex so the build phase can run loop-
// parallel over particles (spec.md §5: "guarded by a per-bucket mutex
// (concurrent insertion)").
type bucketGrid struct {
	nx, ny   int
	cellEdge float64
	originX  float64 // SubdomainLo - R
	originY  float64 // -R
	cells    [][]int
	cellMu   []sync.Mutex
}

func newBucketGrid(nx, ny int, cellEdge, originX, originY float64) *bucketGrid {
	g := &bucketGrid{
		nx: nx, ny: ny,
		cellEdge: cellEdge,
		originX:  originX,
		originY:  originY,
		cells:    make([][]int, nx*ny),
		cellMu:   make([]sync.Mutex, nx*ny),
	}
	return g
}

func (g *bucketGrid) clear() {
	parallelFor(len(g.cells), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			g.cells[i] = g.cells[i][:0]
		}
	})
}

func (g *bucketGrid) cellOf(x, y float64) (bx, by int) {
	bx = int((x - g.originX) / g.cellEdge)
	by = int((y - g.originY) / g.cellEdge)
	if bx < 0 {
		bx = 0
	} else if bx >= g.nx {
		bx = g.nx - 1
	}
	if by < 0 {
		by = 0
	} else if by >= g.ny {
		by = g.ny - 1
	}
	return bx, by
}

func (g *bucketGrid) id(bx, by int) int {
	return by*g.nx + bx
}

func (g *bucketGrid) insert(idx, bx, by int) {
	id := g.id(bx, by)
	g.cellMu[id].Lock()
	g.cells[id] = append(g.cells[id], idx)
	g.cellMu[id].Unlock()
}

// buildGrid (re)sizes and fills the bucket grid for the current
// [0, NTotal) population, growing nx/ny to cover the extended
// subdomain with the current interaction radius. The grid is rebuilt
// fresh every step; Non-goals exclude dynamic bucket sizing beyond
// this per-step recomputation of extent. Both clear and the insertion
// scan are loop-parallel (spec.md §5: "build and tear-down phases are
// loop-parallel").
func (c *Context) buildGrid() {
	radius := c.Cfg.Derived.InteractionRadius
	width := (c.Hi - c.SubdomainLo) + 2*radius
	height := c.Cfg.Tank.Height + 2*radius

	nx := int(math.Ceil(width/radius)) + 1
	ny := int(math.Ceil(height/radius)) + 1
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}

	if c.grid == nil || c.grid.nx != nx || c.grid.ny != ny || c.grid.cellEdge != radius {
		c.grid = newBucketGrid(nx, ny, radius, c.SubdomainLo-radius, -radius)
	} else {
		c.grid.originX = c.SubdomainLo - radius
	}
	c.grid.clear()

	n := c.NTotal()
	parallelFor(n, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			p := &c.Particles[k]
			bx, by := c.grid.cellOf(p.X, p.Y)
			c.grid.insert(k, bx, by)
		}
	})
}

// compass lists the 3x3 neighborhood offsets scanned per owning cell,
// self first then the 8 compass neighbors (spec.md §4.2).
var compass = [9][2]int{
	{0, 0},
	{-1, 1}, {0, 1}, {1, 1},
	{-1, 0}, {1, 0},
	{-1, -1}, {0, -1}, {1, -1},
}

// FindNeighborsBuckets produces the pair list in expected O(n) time
// using the bucket grid. For each particle's owning cell, the 9-cell
// neighborhood is scanned and a pair (p, q) is emitted iff
// Particles[q].GlobalID < Particles[p].GlobalID and the two are within
// the interaction radius — that asymmetric condition is what makes
// each unordered pair appear exactly once across the 9-cell scan
// (spec.md §4.2). Mirrors carry a synthetic GlobalID distinct from
// their source's (see GenerateVirtualParticles), so this condition
// also fires exactly once between a field particle and its own mirror.
//
// The outer scan is split across workers by particle-index range
// (spec.md §5). Each worker accumulates its own local pair list and
// its own neighbor-count shadow rather than writing into ctx.Pairs or
// Particles[].NeighborCount directly, since pair (p,q) found by one
// worker's pi and pair (q,r) found by another's can both touch q — the
// same per-thread-shadow-then-reduce strategy the pair stencils use
// (spec.md §9 "atomic scatter" priority (a)). Pair slots are claimed by
// a single sequential merge once every worker's scan has finished, so
// NPairs still advances as one monotonic count.
func FindNeighborsBuckets(ctx *Context) {
	n := ctx.NTotal()
	resetNeighborState(ctx, n)
	if n == 0 {
		return
	}
	ctx.buildGrid()

	radius := ctx.Cfg.Derived.InteractionRadius
	radius2 := radius * radius

	chunks := chunkRanges(n)
	workers := len(chunks)
	if workers < 1 {
		workers = 1
	}

	if cap(ctx.searchPairs) < workers {
		grown := make([][]Pair, workers)
		copy(grown, ctx.searchPairs)
		ctx.searchPairs = grown
	}
	ctx.searchPairs = ctx.searchPairs[:workers]

	counts := ctx.searchCounts.reset(workers, n)

	var wg sync.WaitGroup
	for w, c := range chunks {
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			local := ctx.searchPairs[w][:0]
			shadow := counts[w]
			for pi := lo; pi < hi; pi++ {
				p := &ctx.Particles[pi]
				bx, by := ctx.grid.cellOf(p.X, p.Y)
				for _, off := range compass {
					nbx, nby := bx+off[0], by+off[1]
					if nbx < 0 || nbx >= ctx.grid.nx || nby < 0 || nby >= ctx.grid.ny {
						continue
					}
					for _, qi := range ctx.grid.cells[ctx.grid.id(nbx, nby)] {
						q := &ctx.Particles[qi]
						if q.GlobalID >= p.GlobalID {
							continue
						}
						d2 := dist2(p, q)
						if d2 > radius2 {
							continue
						}
						r := math.Sqrt(d2)
						local = append(local, Pair{I: pi, J: qi, R: r, Q: r / p.H})
						shadow[pi]++
						shadow[qi]++
					}
				}
			}
			ctx.searchPairs[w] = local
		}(w, c[0], c[1])
	}
	wg.Wait()

	total := 0
	for _, local := range ctx.searchPairs {
		total += len(local)
	}
	if err := ctx.growPairs(total); err != nil {
		panic(err) // allocation failures are handled by the caller via recover in Step
	}
	ctx.NPairs = total
	k := 0
	for _, local := range ctx.searchPairs {
		k += copy(ctx.Pairs[k:], local)
	}

	parallelFor(n, func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			var sum float64
			for w := 0; w < workers; w++ {
				sum += counts[w][idx]
			}
			ctx.Particles[idx].NeighborCount = int(sum)
		}
	})
}

// FindNeighborsDirect is the fallback non-bucket path: a direct double
// scan over the flat array with i<j and squared distance < R^2,
// producing the same pair set as FindNeighborsBuckets modulo ordering
// (spec.md §4.2).
func FindNeighborsDirect(ctx *Context) {
	n := ctx.NTotal()
	resetNeighborState(ctx, n)

	radius := ctx.Cfg.Derived.InteractionRadius
	radius2 := radius * radius

	for i := 0; i < n-1; i++ {
		pi := &ctx.Particles[i]
		for j := i + 1; j < n; j++ {
			pj := &ctx.Particles[j]
			d2 := dist2(pi, pj)
			if d2 >= radius2 {
				continue
			}
			r := math.Sqrt(d2)
			ctx.appendPair(i, j, r, pi.H)
			pi.NeighborCount++
			pj.NeighborCount++
		}
	}
}

func resetNeighborState(ctx *Context, n int) {
	ctx.NPairs = 0
	for k := 0; k < n; k++ {
		p := &ctx.Particles[k]
		p.NeighborCount = 0
		p.WSum = 0
		p.AVRho = 0
	}
}
