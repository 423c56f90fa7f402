package vmm

import (
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
)

// pageTableEntry describes a 32-bit page directory or page table entry.
// Entries encode a physical frame address in bits 12-31 and a set of flags
// in the low bits.
type pageTableEntry uint32

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// SetFlags sets the input list of flags on the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) | uint32(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical frame that this page table entry points to.
func (pte pageTableEntry) Frame() pmm.Frame {
	return pmm.Frame((uint32(pte) & ptePhysPageMask) >> mem.PageShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame pmm.Frame) {
	*pte = (pageTableEntry)((uint32(*pte) &^ ptePhysPageMask) | uint32(frame.Address()))
}
