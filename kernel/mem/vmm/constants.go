package vmm

import "github.com/aayushhyadav/csce-611/kernel/mem"

const (
	// entriesPerTable is the number of 32-bit entries in a page directory
	// or page table page.
	entriesPerTable = 1024

	// recursiveIndex is the directory slot that maps the directory's own
	// frame, allowing any page-table page to be reached through a
	// virtual alias without switching translation contexts.
	recursiveIndex = entriesPerTable - 1

	// ptePhysPageMask extracts the physical frame base address from a
	// directory or table entry. Bits 12-31 hold the frame address; the
	// low 12 bits hold the entry flags.
	ptePhysPageMask = uint32(0xfffff000)

	// tableAliasBase is the virtual address where the recursive mapping
	// exposes the page-table pages: the alias for the table page that
	// covers directory slot i starts at tableAliasBase + i*PageSize.
	tableAliasBase = uintptr(recursiveIndex) << pdeIndexShift

	// directoryAlias is the virtual address of the page directory itself:
	// both translation levels resolve through the recursive slot.
	directoryAlias = tableAliasBase + uintptr(recursiveIndex)<<mem.PageShift

	// pdeIndexShift isolates the directory index bits (31-22) of a
	// virtual address.
	pdeIndexShift = 22

	// pteIndexMask isolates the table index bits (21-12) of a virtual
	// address after shifting by PageShift.
	pteIndexMask = entriesPerTable - 1

	// maxSharedWindowSize is the largest identity-mapped window a single
	// page-table page can describe.
	maxSharedWindowSize = mem.Size(entriesPerTable) * mem.PageSize
)

// PageTableEntryFlag describes a flag that can be applied to a page
// directory or page table entry.
type PageTableEntryFlag uint32

const (
	// FlagPresent is set when the entry points to a frame that is
	// available in memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode code can access this page.
	// If not set only kernel code can access it.
	FlagUserAccessible
)

// pdeIndexForAddress returns the directory slot that covers virtAddr.
func pdeIndexForAddress(virtAddr uintptr) uint32 {
	return uint32(virtAddr >> pdeIndexShift)
}

// pteIndexForAddress returns the table slot that covers virtAddr inside its
// directory region.
func pteIndexForAddress(virtAddr uintptr) uint32 {
	return uint32(virtAddr>>mem.PageShift) & pteIndexMask
}
