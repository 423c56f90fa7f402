// Package cpu provides access to the i386 control registers that drive
// address translation. The register state is kept in package variables so
// that code built on top of it (page-table loading, fault service) remains
// fully observable when it runs outside of ring 0.
package cpu

const (
	// CR0PagingEnabledBit is bit 31 of the CR0 control register. Once
	// set, every memory access issued by the CPU goes through the MMU.
	CR0PagingEnabledBit = uint32(1 << 31)
)

var (
	// cr0 holds the CPU control flags. Bit 31 enables paging.
	cr0 uint32

	// cr2 holds the linear address that caused the most recent page
	// fault. It is populated by the trap plumbing before the fault
	// handler runs.
	cr2 uintptr

	// cr3 holds the physical address of the currently active page
	// directory.
	cr3 uintptr
)

// ReadCR0 returns the value of the CR0 control register.
func ReadCR0() uint32 {
	return cr0
}

// WriteCR0 updates the CR0 control register.
func WriteCR0(val uint32) {
	cr0 = val
}

// ReadCR2 returns the linear address stored in the CR2 register.
func ReadCR2() uintptr {
	return cr2
}

// WriteCR2 stores the faulting linear address into the CR2 register. It is
// invoked by the trap dispatch code when a page fault is raised.
func WriteCR2(faultAddr uintptr) {
	cr2 = faultAddr
}

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr) {
	cr3 = pdtPhysAddr
}

// ActivePDT returns the physical address of the currently active page table
// directory.
func ActivePDT() uintptr {
	return cr3
}

// FlushTLBEntry flushes the TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr) {
}

// Halt stops instruction execution. Calls to Halt never return.
func Halt() {
	for {
	}
}
