package pmm

import "github.com/aayushhyadav/csce-611/kernel/mem"

// FrameState describes the allocation state of a single frame inside a
// FramePool. Each state is encoded using 2 bits so a bitmap byte tracks 4
// frames.
type FrameState uint8

const (
	// FrameUsed marks a non-first frame of an allocated run.
	FrameUsed = FrameState(0x0)

	// FrameHeadOfSequence marks the first frame of an allocated run.
	FrameHeadOfSequence = FrameState(0x2)

	// FrameFree marks a frame that is available for allocation.
	FrameFree = FrameState(0x3)
)

// FramesPerInfoFrame is the number of frames whose state fits into a single
// bitmap frame (4 frames per byte).
const FramesPerInfoFrame = 4 * uint32(mem.PageSize)

// NeededInfoFrames returns the number of bitmap frames required to manage a
// pool of nframes frames.
func NeededInfoFrames(nframes uint32) uint32 {
	return (nframes + FramesPerInfoFrame - 1) / FramesPerInfoFrame
}

// stateBitmap is a byte-slice view over the bitmap frame of a pool. Frame
// index i maps to bits [2i%8, 2i%8+1] of byte i/4.
type stateBitmap []byte

func (bm stateBitmap) state(frameIndex uint32) FrameState {
	shift := (frameIndex % 4) * 2
	return FrameState((bm[frameIndex/4] >> shift) & 0x3)
}

// setState writes the 2-bit pattern for state using absolute bit writes; the
// previous frame state does not matter.
func (bm stateBitmap) setState(frameIndex uint32, state FrameState) {
	shift := (frameIndex % 4) * 2
	bm[frameIndex/4] = bm[frameIndex/4]&^(0x3<<shift) | byte(state)<<shift
}

// bitmapBytes returns the number of bitmap bytes required for nframes frames.
func bitmapBytes(nframes uint32) uintptr {
	return uintptr((nframes + 3) / 4)
}
