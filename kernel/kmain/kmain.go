// Package kmain contains the kernel entry point and the boot sequence that
// brings up physical frame management, paging and the demand-paged heap.
package kmain

import (
	"unsafe"

	"github.com/aayushhyadav/csce-611/kernel"
	"github.com/aayushhyadav/csce-611/kernel/irq"
	"github.com/aayushhyadav/csce-611/kernel/kfmt"
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
	"github.com/aayushhyadav/csce-611/kernel/mem/vmm"
)

const (
	// The kernel frame pool occupies [2Mb, 4Mb) and hosts its own state
	// bitmap; the process pool occupies [4Mb, 32Mb) with its bitmap in a
	// kernel-pool frame.
	kernelPoolBaseFrame = pmm.Frame(512)
	kernelPoolFrames    = uint32(512)

	processPoolBaseFrame = pmm.Frame(1024)
	processPoolFrames    = uint32(7168)

	// The machine has a 1Mb memory hole at 15Mb that must never be
	// handed out.
	holeBaseFrame = pmm.Frame(3840)
	holeFrames    = uint32(256)

	// The first 4Mb of physical memory stay identity-mapped in every
	// translation context.
	sharedWindowSize = 4 * mem.Mb

	codePoolBase = uintptr(512) << 20
	codePoolSize = 256 * mem.Kb

	heapPoolBase = uintptr(1) << 30
	heapPoolSize = 256 * mem.Kb
)

var errSelfTestMismatch = &kernel.Error{Module: "kmain", Message: "demand-paged memory read back a different value than was written"}

// Kmain is the entry point invoked by the bootstrap trampoline once the
// CPU runs in protected mode with a valid stack. It never returns.
func Kmain() {
	kfmt.Printf("setting up frame pools and paging\n")

	_, _, heapPool, err := bootstrapMemory()
	if err != nil {
		kfmt.Panic(err)
	}

	kfmt.Printf("paging enabled; running demand-paging self-test\n")

	if err = demandPagingSelfTest(heapPool); err != nil {
		kfmt.Panic(err)
	}

	kfmt.Printf("self-test passed; halting\n")

	for {
	}
}

// bootstrapMemory builds the boot memory layout: the kernel and process
// frame pools, a loaded page table with paging enabled and the code and
// heap VM pools. The returned heap pool is ready for demand-paged
// allocations.
func bootstrapMemory() (*vmm.Manager, *vmm.VMPool, *vmm.VMPool, *kernel.Error) {
	var reg pmm.Registry

	kernelPool, err := pmm.NewFramePool(&reg, kernelPoolBaseFrame, kernelPoolFrames, 0)
	if err != nil {
		return nil, nil, nil, err
	}

	infoFrame, err := kernelPool.AllocFrames(pmm.NeededInfoFrames(processPoolFrames))
	if err != nil {
		return nil, nil, nil, err
	}

	processPool, err := pmm.NewFramePool(&reg, processPoolBaseFrame, processPoolFrames, infoFrame)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = processPool.MarkInaccessible(holeBaseFrame, holeFrames); err != nil {
		return nil, nil, nil, err
	}

	mgr, err := vmm.NewManager(&reg, kernelPool, processPool, sharedWindowSize)
	if err != nil {
		return nil, nil, nil, err
	}

	pt, err := mgr.NewPageTable()
	if err != nil {
		return nil, nil, nil, err
	}

	// The fault handler must be reachable before the first translated
	// memory access.
	irq.HandleExceptionWithCode(irq.PageFaultException, mgr.HandleFault)

	pt.Load()
	mgr.EnablePaging()

	codePool, err := vmm.NewVMPool(codePoolBase, codePoolSize, processPool, pt)
	if err != nil {
		return nil, nil, nil, err
	}

	heapPool, err := vmm.NewVMPool(heapPoolBase, heapPoolSize, processPool, pt)
	if err != nil {
		return nil, nil, nil, err
	}

	return mgr, codePool, heapPool, nil
}

// demandPagingSelfTest allocates a region from pool, touches every page so
// the fault handler backs it with frames, verifies the writes stick and
// releases the region again.
func demandPagingSelfTest(pool *vmm.VMPool) *kernel.Error {
	regionSize := 2 * mem.PageSize

	base, err := pool.Allocate(regionSize)
	if err != nil {
		return err
	}

	for off := uintptr(0); off < uintptr(regionSize); off += uintptr(mem.PageSize) {
		// The first write to each page traps into the fault handler
		word := (*uint32)(unsafe.Pointer(base + off))
		*word = uint32(base + off)
		if *word != uint32(base+off) {
			return errSelfTestMismatch
		}
	}

	return pool.Release(base)
}
