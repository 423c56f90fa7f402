package pmm

import (
	"unsafe"

	"github.com/aayushhyadav/csce-611/kernel"
)

var (
	// ErrOversizedPool is returned when a pool is constructed with more
	// frames than a single bitmap frame can describe.
	ErrOversizedPool = &kernel.Error{Module: "pmm", Message: "pool state bitmap does not fit in a single frame"}

	// ErrNotEnoughFrames is returned by AllocFrames when the pool's free
	// frame count is lower than the requested run length.
	ErrNotEnoughFrames = &kernel.Error{Module: "pmm", Message: "not enough free frames in pool"}

	// ErrNoContiguousRun is returned by AllocFrames when the pool has
	// enough free frames in total but external fragmentation prevents a
	// contiguous run of the requested length.
	ErrNoContiguousRun = &kernel.Error{Module: "pmm", Message: "no contiguous run of free frames with the requested length"}

	// ErrNotHeadOfSequence is returned when releasing a frame that is not
	// the first frame of an allocated run.
	ErrNotHeadOfSequence = &kernel.Error{Module: "pmm", Message: "release target frame is not the head of an allocated sequence"}

	// ErrFrameNotFree is returned by MarkInaccessible when the start of
	// the target region has already been allocated.
	ErrFrameNotFree = &kernel.Error{Module: "pmm", Message: "target frame is not free"}

	// ErrFrameNotOwned is returned when a frame number falls outside the
	// range managed by a pool.
	ErrFrameNotOwned = &kernel.Error{Module: "pmm", Message: "frame is not managed by this pool"}
)

// FrameMapperFn maps the physical frame holding a pool's state bitmap into a
// byte slice the pool can operate on.
type FrameMapperFn func(frame Frame, size uintptr) []byte

// frameMapperFn overlays a byte slice on top of the bitmap frame's physical
// memory. The default mapper assumes the frame lies inside the
// identity-mapped region; hosted environments and tests install their own
// mapper via SetFrameMapper.
var frameMapperFn = defaultFrameMapper

func defaultFrameMapper(frame Frame, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(frame.Address())), size)
}

// SetFrameMapper registers the mapper used to access pool bitmap frames.
// Passing nil restores the default identity mapper.
func SetFrameMapper(mapper FrameMapperFn) {
	if mapper == nil {
		frameMapperFn = defaultFrameMapper
		return
	}
	frameMapperFn = mapper
}

// FramePool manages a contiguous range of physical frames
// [baseFrame, baseFrame+nframes) using a 2-bit state per frame. It can
// allocate and release runs of consecutive frames.
type FramePool struct {
	baseFrame Frame
	nframes   uint32
	freeCount uint32

	// infoFrame holds the state bitmap. When the pool was constructed
	// with info frame 0 the bitmap self-hosts in the pool's first frame.
	infoFrame Frame
	bitmap    stateBitmap
}

// NewFramePool constructs a frame pool managing nframes frames starting at
// baseFrame and registers its range with reg. If infoFrame is 0 the state
// bitmap is placed in the pool's own first frame, which is immediately
// marked as allocated; otherwise the caller-supplied frame holds the bitmap
// and every pool frame starts out free.
func NewFramePool(reg *Registry, baseFrame Frame, nframes uint32, infoFrame Frame) (*FramePool, *kernel.Error) {
	if nframes > FramesPerInfoFrame {
		return nil, ErrOversizedPool
	}

	pool := &FramePool{
		baseFrame: baseFrame,
		nframes:   nframes,
		freeCount: nframes,
		infoFrame: infoFrame,
	}

	bitmapFrame := infoFrame
	if infoFrame == 0 {
		bitmapFrame = baseFrame
	}
	pool.bitmap = stateBitmap(frameMapperFn(bitmapFrame, bitmapBytes(nframes)))

	for frameIndex := uint32(0); frameIndex < nframes; frameIndex++ {
		pool.bitmap.setState(frameIndex, FrameFree)
	}

	// A self-hosted bitmap consumes the pool's first frame
	if infoFrame == 0 {
		pool.bitmap.setState(0, FrameHeadOfSequence)
		pool.freeCount--
	}

	if reg != nil {
		if err := reg.register(pool); err != nil {
			return nil, err
		}
	}

	return pool, nil
}

// BaseFrame returns the first frame number managed by this pool.
func (pool *FramePool) BaseFrame() Frame {
	return pool.baseFrame
}

// FreeFrameCount returns the number of frames that are currently free.
func (pool *FramePool) FreeFrameCount() uint32 {
	return pool.freeCount
}

// ContainsFrame returns true if frame falls inside the range managed by this
// pool.
func (pool *FramePool) ContainsFrame(frame Frame) bool {
	return frame >= pool.baseFrame && frame < pool.baseFrame+Frame(pool.nframes)
}

// AllocFrames reserves the leftmost run of nframes consecutive free frames
// and returns the absolute number of the run's first frame. The first frame
// is marked head-of-sequence and the remaining frames as used. If the pool
// holds fewer than nframes free frames in total, ErrNotEnoughFrames is
// returned; if enough frames are free but no contiguous run of the requested
// length exists, ErrNoContiguousRun is returned and the pool state is left
// untouched.
func (pool *FramePool) AllocFrames(nframes uint32) (Frame, *kernel.Error) {
	if nframes == 0 || nframes > pool.freeCount {
		return InvalidFrame, ErrNotEnoughFrames
	}

	var runStart, runLen uint32
	for frameIndex := uint32(0); frameIndex < pool.nframes; frameIndex++ {
		if pool.bitmap.state(frameIndex) != FrameFree {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = frameIndex
		}

		if runLen++; runLen == nframes {
			pool.markAllocated(runStart, nframes)
			return pool.baseFrame + Frame(runStart), nil
		}
	}

	return InvalidFrame, ErrNoContiguousRun
}

// MarkInaccessible reserves the run [baseFrame, baseFrame+nframes) as if it
// had been returned by AllocFrames. It is used to wall off physical ranges
// that are known to be unusable (e.g. memory holes). The target start frame
// must currently be free.
func (pool *FramePool) MarkInaccessible(baseFrame Frame, nframes uint32) *kernel.Error {
	if !pool.ContainsFrame(baseFrame) {
		return ErrFrameNotOwned
	}

	frameIndex := uint32(baseFrame - pool.baseFrame)
	if pool.bitmap.state(frameIndex) != FrameFree {
		return ErrFrameNotFree
	}

	pool.markAllocated(frameIndex, nframes)
	return nil
}

// ReleaseFrames frees the allocated run that starts at firstFrame: the
// head-of-sequence frame and every used frame that follows it up to the next
// free or head-of-sequence frame. Releasing a frame that is not the head of
// a run is an error and leaves the pool untouched.
func (pool *FramePool) ReleaseFrames(firstFrame Frame) *kernel.Error {
	if !pool.ContainsFrame(firstFrame) {
		return ErrFrameNotOwned
	}

	frameIndex := uint32(firstFrame - pool.baseFrame)
	if pool.bitmap.state(frameIndex) != FrameHeadOfSequence {
		return ErrNotHeadOfSequence
	}

	pool.bitmap.setState(frameIndex, FrameFree)
	pool.freeCount++

	for frameIndex++; frameIndex < pool.nframes && pool.bitmap.state(frameIndex) == FrameUsed; frameIndex++ {
		pool.bitmap.setState(frameIndex, FrameFree)
		pool.freeCount++
	}

	return nil
}

// markAllocated flags the run [runStart, runStart+nframes) as an allocated
// sequence and adjusts the free counter.
func (pool *FramePool) markAllocated(runStart, nframes uint32) {
	pool.bitmap.setState(runStart, FrameHeadOfSequence)
	for frameIndex := runStart + 1; frameIndex < runStart+nframes; frameIndex++ {
		pool.bitmap.setState(frameIndex, FrameUsed)
	}
	pool.freeCount -= nframes
}
