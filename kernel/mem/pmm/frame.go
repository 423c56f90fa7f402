// Package pmm contains code that manages physical memory frame allocations.
package pmm

import "github.com/aayushhyadav/csce-611/kernel/mem"

// Frame describes a physical memory page index.
type Frame uintptr

// InvalidFrame is returned by frame allocators when they fail to reserve the
// requested frames.
const InvalidFrame = ^Frame(0)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address where this Frame begins.
func (f Frame) Address() uintptr {
	return uintptr(f) << mem.PageShift
}

// FrameFromAddress returns the Frame that contains the given physical
// address. Addresses that are not page-aligned are rounded down to the frame
// that contains them.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> mem.PageShift)
}
