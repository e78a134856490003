package sim

import (
	"sync"

	"github.com/pthm-cable/sph/telemetry"
)

// parallelWorkers is how many goroutines a fork-join loop splits its
// work across: telemetry.WorkerCount() (SPH_WORKERS, else GOMAXPROCS),
// the same worker-count source the teacher's updateBehaviorAndPhysicsParallel
// reads from runtime.GOMAXPROCS(0) once at startup (game/parallel.go).
func parallelWorkers() int {
	n := telemetry.WorkerCount()
	if n < 1 {
		return 1
	}
	return n
}

// parallelFor runs fn once per contiguous chunk of [0,n), chunked the
// way the teacher's updateBehaviorAndPhysicsParallel splits its entity
// snapshot across workers, and blocks until every chunk finishes. Every
// call is its own fork-join barrier: no stencil may observe another's
// partial state, and nothing here survives past the call (spec.md §5).
// Safe to use only when each index's writes are disjoint from every
// other index's — callers that scatter into other particles' fields
// from a pair loop use the per-worker shadow accumulator pattern
// instead (see reduceOverPairs).
func parallelFor(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	chunks := chunkRanges(n)
	if len(chunks) == 1 {
		fn(chunks[0][0], chunks[0][1])
		return
	}
	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(c[0], c[1])
	}
	wg.Wait()
}

// chunkRanges splits [0,n) into up to parallelWorkers() contiguous,
// non-empty ranges.
func chunkRanges(n int) [][2]int {
	workers := parallelWorkers()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	chunks := make([][2]int, 0, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		chunks = append(chunks, [2]int{lo, hi})
	}
	return chunks
}

// shadowSet is a reusable set of per-worker scratch accumulators, one
// slice of length n per worker, grown and zeroed in place across steps
// rather than reallocated (the same reuse discipline grid.go's
// bucketGrid cells follow).
type shadowSet struct {
	bufs [][]float64
}

func (s *shadowSet) reset(workers, n int) [][]float64 {
	if cap(s.bufs) < workers {
		grown := make([][]float64, workers)
		copy(grown, s.bufs)
		s.bufs = grown
	}
	s.bufs = s.bufs[:workers]
	for w := range s.bufs {
		if cap(s.bufs[w]) < n {
			s.bufs[w] = make([]float64, n)
		} else {
			s.bufs[w] = s.bufs[w][:n]
			for i := range s.bufs[w] {
				s.bufs[w][i] = 0
			}
		}
	}
	return s.bufs
}

// reduceOverPairs runs accumulate once per pair-array chunk, each
// invocation given its own worker index and pair-index range, then
// sums every worker's contribution into dst via combine. This is
// spec.md §5's preferred atomic-scatter strategy: "(a) per-thread
// shadow accumulators reduced after the loop" — pair (i,j) and pair
// (i,k) can land in different workers' chunks and both touch particle
// i's accumulator, so a shared slice would race; each worker instead
// owns its own full-length shadow and collisions are resolved by
// summation once every worker has finished.
func reduceOverPairs(nPairs, n int, shadow *shadowSet, accumulate func(shadow []float64, lo, hi int), combine func(idx int, sum float64)) {
	workers := parallelWorkers()
	if workers > nPairs && nPairs > 0 {
		workers = nPairs
	}
	if workers < 1 {
		workers = 1
	}
	bufs := shadow.reset(workers, n)

	chunk := (nPairs + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > nPairs {
			hi = nPairs
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			accumulate(bufs[w], lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	parallelFor(n, func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			var sum float64
			for w := 0; w < len(bufs); w++ {
				sum += bufs[w][idx]
			}
			combine(idx, sum)
		}
	})
}
