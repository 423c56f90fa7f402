package pmm

import (
	"sort"

	"github.com/aayushhyadav/csce-611/kernel"
)

// ErrPoolOverlap is returned when registering a pool whose frame range
// overlaps an already registered pool.
var ErrPoolOverlap = &kernel.Error{Module: "pmm", Message: "pool frame range overlaps a registered pool"}

// Registry tracks every constructed frame pool, keyed by the frame range it
// owns, and routes frame-number-addressed release requests to the owning
// pool. Callers releasing a run usually only know its first frame number,
// not the pool it was allocated from.
type Registry struct {
	// pools is kept sorted by base frame so ownership lookups can use a
	// binary search.
	pools []*FramePool
}

// register inserts pool into the registry, keeping the pool list sorted by
// base frame. Pools with overlapping frame ranges are rejected.
func (reg *Registry) register(pool *FramePool) *kernel.Error {
	insertAt := sort.Search(len(reg.pools), func(i int) bool {
		return reg.pools[i].baseFrame > pool.baseFrame
	})

	if insertAt > 0 {
		if prev := reg.pools[insertAt-1]; prev.ContainsFrame(pool.baseFrame) {
			return ErrPoolOverlap
		}
	}
	if insertAt < len(reg.pools) {
		if next := reg.pools[insertAt]; pool.ContainsFrame(next.baseFrame) {
			return ErrPoolOverlap
		}
	}

	reg.pools = append(reg.pools, nil)
	copy(reg.pools[insertAt+1:], reg.pools[insertAt:])
	reg.pools[insertAt] = pool
	return nil
}

// PoolForFrame returns the registered pool whose frame range contains frame.
func (reg *Registry) PoolForFrame(frame Frame) (*FramePool, *kernel.Error) {
	candidate := sort.Search(len(reg.pools), func(i int) bool {
		return reg.pools[i].baseFrame > frame
	})

	if candidate == 0 {
		return nil, ErrFrameNotOwned
	}

	pool := reg.pools[candidate-1]
	if !pool.ContainsFrame(frame) {
		return nil, ErrFrameNotOwned
	}

	return pool, nil
}

// ReleaseFrames locates the pool that owns firstFrame and releases the
// allocated run that starts there.
func (reg *Registry) ReleaseFrames(firstFrame Frame) *kernel.Error {
	pool, err := reg.PoolForFrame(firstFrame)
	if err != nil {
		return err
	}

	return pool.ReleaseFrames(firstFrame)
}
