package vmm

import (
	"github.com/aayushhyadav/csce-611/kernel"
	"github.com/aayushhyadav/csce-611/kernel/irq"
	"github.com/aayushhyadav/csce-611/kernel/kfmt"
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
)

// ErrIllegitimateAddress is returned by the fault service when the faulting
// address falls outside every registered VM pool.
var ErrIllegitimateAddress = &kernel.Error{Module: "vmm", Message: "faulting address does not belong to any registered VM pool"}

// HandleFault services a page-fault exception. Faults that can be repaired
// by materializing a page-table page or a leaf frame return to the
// interrupted code; anything else is fatal and halts the CPU after dumping
// the fault state.
func (m *Manager) HandleFault(errorCode uint32, frame *irq.Frame, regs *irq.Regs) {
	faultAddr := readCR2Fn()

	if err := m.serviceFault(errorCode, faultAddr); err != nil {
		m.fatalFault(err, errorCode, faultAddr, frame, regs)
	}
}

// serviceFault implements the demand-paging protocol for a fault at
// faultAddr. An absent directory entry is repaired by installing a fresh
// page-table page whose entries are all marked absent; re-executing the
// faulting access then traps a second time and the absent leaf entry is
// repaired by mapping a fresh frame. Both frames come from the process
// pool.
func (m *Manager) serviceFault(errorCode uint32, faultAddr uintptr) *kernel.Error {
	// Bit 0 of the error code is set when the fault was raised by a
	// protection violation on a present page. Protection faults are not
	// modeled; no corrective action is taken.
	if errorCode&uint32(FlagPresent) != 0 {
		return nil
	}

	// Validate the address against the registered pools. Faults taken
	// before the first pool registration are serviced unconditionally;
	// the page table itself is grown on demand during early boot.
	if m.poolListHead != nil {
		legitimate := false
		for pool := m.poolListHead; pool != nil; pool = pool.next {
			if pool.IsLegitimate(faultAddr) {
				legitimate = true
				break
			}
		}
		if !legitimate {
			return ErrIllegitimateAddress
		}
	}

	pdeIndex := pdeIndexForAddress(faultAddr)

	var dirMiss bool
	withDirectory(func(dir *tablePage) {
		dirMiss = !dir[pdeIndex].HasFlags(FlagPresent)
	})

	if dirMiss {
		tableFrame, err := m.processPool.AllocFrames(1)
		if err != nil {
			return err
		}

		withDirectory(func(dir *tablePage) {
			entry := &dir[pdeIndex]
			*entry = 0
			entry.SetFrame(tableFrame)
			entry.SetFlags(FlagPresent | FlagRW)
		})

		// The recursive alias for the new table page now resolves to
		// the fresh frame; drop any stale translation before writing
		// through it.
		flushTLBEntryFn(tableAliasBase + uintptr(pdeIndex)<<mem.PageShift)

		withTablePage(pdeIndex, func(table *tablePage) {
			for i := 0; i < entriesPerTable; i++ {
				table[i] = 0
				table[i].SetFlags(FlagUserAccessible)
			}
		})

		// The leaf entry is still absent; returning re-executes the
		// faulting access which traps again and takes the leaf path.
		return nil
	}

	leafFrame, err := m.processPool.AllocFrames(1)
	if err != nil {
		return err
	}

	withTablePage(pdeIndex, func(table *tablePage) {
		entry := &table[pteIndexForAddress(faultAddr)]
		*entry = 0
		entry.SetFrame(leafFrame)
		entry.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)
	})

	flushTLBEntryFn(faultAddr &^ (uintptr(mem.PageSize) - 1))
	return nil
}

// fatalFault reports an unrecoverable page fault and halts the CPU.
func (m *Manager) fatalFault(err *kernel.Error, errorCode uint32, faultAddr uintptr, frame *irq.Frame, regs *irq.Regs) {
	kfmt.Printf("\nPage fault while accessing address: 0x%08x\nReason: ", uint32(faultAddr))
	switch {
	case err == ErrIllegitimateAddress:
		kfmt.Printf("address not part of any registered VM pool")
	case err == pmm.ErrNotEnoughFrames || err == pmm.ErrNoContiguousRun:
		kfmt.Printf("out of physical frames")
	default:
		kfmt.Printf("%s", err.Message)
	}
	if errorCode&uint32(FlagUserAccessible) != 0 {
		kfmt.Printf(" (user mode)")
	}
	kfmt.Printf("\n\nRegisters:\n")
	regs.Print()
	frame.Print()

	kfmt.Printf("\nHalting\n")
	cpuHaltFn()
}
